package application

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	zviper "github.com/lk2023060901/wirecodec/pkg/util/viper"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

const sampleConfig = `
codec:
  endian: big
network:
  listen-addr: 0.0.0.0:9100
  serializer: json
  revision: 1.2.0
  read-timeout: 3s
logging:
  acceptor:
    level: debug
`

func TestRunWithArgs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	app := New()
	require.NoError(t, app.RunWithArgs([]string{"--config", path}))

	assert.Equal(t, wire.BigEndian, app.WireConfig().Endian)
	s := app.Settings()
	assert.Equal(t, "0.0.0.0:9100", s.Network.ListenAddr)
	assert.Equal(t, "json", s.Network.Serializer)
	assert.Equal(t, 3*time.Second, s.Network.ReadTimeout)
	assert.Equal(t, uint32(16*1024*1024), s.Network.MaxFrameSize)
	assert.Equal(t, "wirecodec:", s.Redis.Prefix)

	assert.NotNil(t, app.Logger("acceptor"))
	assert.NotNil(t, app.Logger("missing"))
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(envConfigPath, "/env.yaml")

	path, err := resolveConfigPath(nil)
	require.NoError(t, err)
	assert.Equal(t, "/env.yaml", path)

	path, err = resolveConfigPath([]string{"--config=/cli.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "/cli.yaml", path)

	_, err = resolveConfigPath([]string{"--config"})
	assert.Error(t, err)
}

func TestInvalidSettings(t *testing.T) {
	cases := []string{
		"codec:\n  endian: middle\n",
		"network:\n  serializer: xml\n",
		"network:\n  accept-range: not-a-range\n",
		"network:\n  encrypt-key: \"00\"\n",
	}
	for _, c := range cases {
		cfg := zviper.New()
		require.NoError(t, cfg.LoadBytes("yaml", []byte(c)))
		err := New().RunWithConfig(cfg)
		assert.ErrorIs(t, err, merr.ErrParameterInvalid, c)
	}
}

func TestMissingConfigFile(t *testing.T) {
	err := New().RunWithArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestNetworkWiring(t *testing.T) {
	cfg := zviper.New()
	require.NoError(t, cfg.LoadBytes("yaml", []byte(sampleConfig)))
	app := New()
	require.NoError(t, app.RunWithConfig(cfg))

	c, err := app.NewCodec()
	require.NoError(t, err)
	assert.Equal(t, "json", c.Serializer().Name())

	ac, err := app.AcceptorConfig()
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", ac.Handshake.Revision.String())
	assert.Equal(t, wire.BigEndian, ac.Handshake.Endian)
	assert.Equal(t, 5*time.Second, ac.Handshake.Timeout)
	assert.Equal(t, 3*time.Second, ac.ReadTimeout)

	cc, err := app.ConnectorConfig(c)
	require.NoError(t, err)
	assert.Same(t, c, cc.Codec)
	assert.Len(t, cc.DialRetry, 3)
	assert.Equal(t, 1024, cc.Session.SendQueueSize)

	store, err := app.OpenStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestOpenStore(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := zviper.New()
	require.NoError(t, cfg.LoadBytes("yaml", []byte("redis:\n  addr: "+server.Addr()+"\n")))
	app := New()
	require.NoError(t, app.RunWithConfig(cfg))

	store, err := app.OpenStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", wire.U16(7), 0))
	assert.True(t, server.Exists("wirecodec:k"))
}

func TestEncryptedCodec(t *testing.T) {
	key := strings.Repeat("ab", 32)
	load := func(encKey, macKey string) (*Application, error) {
		cfg := zviper.New()
		yaml := "network:\n  encrypt-key: \"" + encKey + "\"\n  mac-key: \"" + macKey + "\"\n"
		require.NoError(t, cfg.LoadBytes("yaml", []byte(yaml)))
		app := New()
		return app, app.RunWithConfig(cfg)
	}

	app, err := load(key, strings.Repeat("cd", 32))
	require.NoError(t, err)
	c, err := app.NewCodec()
	require.NoError(t, err)

	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, c.Encode(ctx, &buf, packet.NewHeader(1, 1), wire.Str("payload")))
	assert.NotContains(t, buf.String(), "payload")
	var out wire.Str
	_, err = c.Decode(ctx, &buf, &out)
	require.NoError(t, err)
	assert.Equal(t, wire.Str("payload"), out)

	app, err = load("zz", key)
	require.NoError(t, err)
	_, err = app.NewCodec()
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	app, err = load(key[:10], key)
	require.NoError(t, err)
	_, err = app.NewCodec()
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
