package application

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/lk2023060901/wirecodec/internal/network/acceptor"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/connector"
	"github.com/lk2023060901/wirecodec/internal/network/crypto"
	"github.com/lk2023060901/wirecodec/internal/network/framer"
	"github.com/lk2023060901/wirecodec/internal/network/handshake"
	"github.com/lk2023060901/wirecodec/internal/network/serializer"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/store/redisstore"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/util/retry"
)

// NewCodec builds the frame codec described by the network section.
func (a *Application) NewCodec() (codec.Codec, error) {
	n := a.settings.Network
	ser, err := serializer.New(n.Serializer, a.wireCfg)
	if err != nil {
		return nil, err
	}
	enc, err := a.encryptor()
	if err != nil {
		return nil, err
	}
	return codec.New(codec.Options{
		Framer:     framer.NewLengthPrefixedFramer(a.wireCfg, n.MaxFrameSize),
		Serializer: ser,
		Encryptor:  enc,
	})
}

func (a *Application) encryptor() (crypto.Encryptor, error) {
	n := a.settings.Network
	if n.EncryptKey == "" && n.MACKey == "" {
		return crypto.NopEncryptor{}, nil
	}
	encKey, err := hex.DecodeString(n.EncryptKey)
	if err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("network.encrypt-key: %s", err.Error())
	}
	macKey, err := hex.DecodeString(n.MACKey)
	if err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("network.mac-key: %s", err.Error())
	}
	enc, err := crypto.NewAEADHMAC(encKey, macKey)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// HandshakeConfig returns the revision check used by both acceptor and connector.
func (a *Application) HandshakeConfig() (handshake.Config, error) {
	n := a.settings.Network
	hs, err := handshake.NewConfig(n.Revision, n.AcceptRange, a.wireCfg.Endian)
	if err != nil {
		return handshake.Config{}, err
	}
	hs.Timeout = n.HandshakeTimeout
	return hs, nil
}

// SessionConfig returns the per-session send settings.
func (a *Application) SessionConfig() session.Config {
	n := a.settings.Network
	return session.Config{SendQueueSize: n.SendQueueSize, WriteTimeout: n.WriteTimeout}
}

func (a *Application) AcceptorConfig() (acceptor.Config, error) {
	hs, err := a.HandshakeConfig()
	if err != nil {
		return acceptor.Config{}, err
	}
	return acceptor.Config{
		Handshake:   hs,
		ReadTimeout: a.settings.Network.ReadTimeout,
	}, nil
}

// ConnectorConfig wires dial retries and reconnect backoff from the network section.
func (a *Application) ConnectorConfig(c codec.Codec) (connector.Config, error) {
	hs, err := a.HandshakeConfig()
	if err != nil {
		return connector.Config{}, err
	}
	n := a.settings.Network
	return connector.Config{
		Codec:       c,
		Handshake:   hs,
		Session:     a.SessionConfig(),
		ReadTimeout: n.ReadTimeout,
		DialTimeout: n.HandshakeTimeout,
		DialRetry:   []retry.Option{retry.Attempts(n.DialAttempts), retry.Sleep(n.ReconnectInitial), retry.MaxSleepTime(n.ReconnectMax)},
		Reconnect:   []retry.Option{retry.Attempts(0), retry.Sleep(n.ReconnectInitial), retry.MaxSleepTime(n.ReconnectMax)},
	}, nil
}

// OpenStore connects to the configured Redis. It returns nil when redis.addr is empty.
func (a *Application) OpenStore(ctx context.Context) (*redisstore.Store, error) {
	r := a.settings.Redis
	if r.Addr == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return redisstore.Open(ctx, redisstore.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		Prefix:   r.Prefix,
		Config:   a.wireCfg,
	})
}
