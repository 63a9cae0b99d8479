package application

import (
	"time"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	zviper "github.com/lk2023060901/wirecodec/pkg/util/viper"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// Settings mirrors the non-logging part of the configuration file.
type Settings struct {
	Codec   CodecSettings   `mapstructure:"codec"`
	Network NetworkSettings `mapstructure:"network"`
	Redis   RedisSettings   `mapstructure:"redis"`
	Metrics MetricsSettings `mapstructure:"metrics"`
}

type CodecSettings struct {
	// Endian is "little" or "big".
	Endian string `mapstructure:"endian"`
}

// WireConfig converts the codec section into a wire.Config.
func (c CodecSettings) WireConfig() (wire.Config, error) {
	endian, err := wire.ParseEndian(c.Endian)
	if err != nil {
		return wire.Config{}, err
	}
	return wire.DefaultConfig().WithEndian(endian), nil
}

type NetworkSettings struct {
	ListenAddr   string `mapstructure:"listen-addr"`
	DialAddr     string `mapstructure:"dial-addr"`
	MaxFrameSize uint32 `mapstructure:"max-frame-size"`
	// Serializer is one of wire, json, proto.
	Serializer string `mapstructure:"serializer"`
	// Revision is the local wire revision, AcceptRange the peer revisions accepted during handshake.
	Revision    string `mapstructure:"revision"`
	AcceptRange string `mapstructure:"accept-range"`

	SendQueueSize    int           `mapstructure:"send-queue-size"`
	ReadTimeout      time.Duration `mapstructure:"read-timeout"`
	WriteTimeout     time.Duration `mapstructure:"write-timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`

	DialAttempts     uint          `mapstructure:"dial-attempts"`
	ReconnectInitial time.Duration `mapstructure:"reconnect-initial"`
	ReconnectMax     time.Duration `mapstructure:"reconnect-max"`

	// EncryptKey and MACKey are hex encoded 32 byte keys; both empty leaves payloads in clear.
	EncryptKey string `mapstructure:"encrypt-key"`
	MACKey     string `mapstructure:"mac-key"`
}

// Validate checks the fields that cannot be checked by unmarshalling alone.
func (n NetworkSettings) Validate() error {
	switch n.Serializer {
	case "wire", "json", "proto":
	default:
		return merr.WrapErrParameterInvalid("wire|json|proto", n.Serializer, "network.serializer")
	}
	if _, err := semver.Parse(n.Revision); err != nil {
		return merr.WrapErrParameterInvalidMsg("network.revision %q: %s", n.Revision, err.Error())
	}
	if _, err := semver.ParseRange(n.AcceptRange); err != nil {
		return merr.WrapErrParameterInvalidMsg("network.accept-range %q: %s", n.AcceptRange, err.Error())
	}
	if (n.EncryptKey == "") != (n.MACKey == "") {
		return merr.WrapErrParameterInvalidMsg("network.encrypt-key and network.mac-key must be set together")
	}
	return nil
}

// RedisSettings configures the optional store; an empty Addr disables it.
type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix is prepended to every key written by the store.
	Prefix string `mapstructure:"prefix"`
}

type MetricsSettings struct {
	Enable bool `mapstructure:"enable"`
	// Addr is where the example binaries expose /metrics; empty means not served.
	Addr string `mapstructure:"addr"`
}

func setDefaults(cfg *zviper.Config) {
	cfg.SetDefault("codec.endian", "little")

	cfg.SetDefault("network.listen-addr", "127.0.0.1:9000")
	cfg.SetDefault("network.dial-addr", "127.0.0.1:9000")
	cfg.SetDefault("network.max-frame-size", 16*1024*1024)
	cfg.SetDefault("network.serializer", "wire")
	cfg.SetDefault("network.revision", "1.0.0")
	cfg.SetDefault("network.accept-range", ">=1.0.0 <2.0.0")
	cfg.SetDefault("network.send-queue-size", 1024)
	cfg.SetDefault("network.handshake-timeout", 5*time.Second)
	cfg.SetDefault("network.dial-attempts", 5)
	cfg.SetDefault("network.reconnect-initial", 200*time.Millisecond)
	cfg.SetDefault("network.reconnect-max", 5*time.Second)

	cfg.SetDefault("redis.prefix", "wirecodec:")
}
