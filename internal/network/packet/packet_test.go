package packet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/wirecodec/pkg/wire"
)

func TestEnvelopeLayout(t *testing.T) {
	ctx := context.Background()
	env := Envelope{
		Header:  MessageHeader{Op: 1, Seq: 2, Flags: 3, Timestamp: -1},
		Payload: wire.Bytes("hi"),
	}
	assert.Equal(t, 28+8+2, env.Size())

	data, err := wire.Encode(ctx, env)
	require.NoError(t, err)
	require.Len(t, data, env.Size())
	assert.Equal(t, []byte{1, 0, 0, 0}, data[:4])
	assert.Equal(t, []byte("hi"), data[len(data)-2:])

	var out Envelope
	require.NoError(t, wire.Decode(ctx, data, &out))
	assert.Equal(t, env, out)
}

func TestHeaderFlags(t *testing.T) {
	h := NewHeader(7, 9)
	assert.NotZero(t, h.Timestamp)
	assert.False(t, h.HasFlag(FlagResponse))
	h.SetFlag(FlagResponse)
	h.SetFlag(FlagError)
	assert.True(t, h.HasFlag(FlagResponse))
	assert.True(t, h.HasFlag(FlagError))
	assert.Equal(t, wire.U64(3), h.Flags)
}

func TestErrorBodyRoundTrip(t *testing.T) {
	ctx := context.Background()
	body := ErrorBody{Code: 203, Message: "route not found"}
	data, err := wire.DefaultConfig().WithEndian(wire.BigEndian).Encode(ctx, body)
	require.NoError(t, err)

	var out ErrorBody
	require.NoError(t, wire.DefaultConfig().WithEndian(wire.BigEndian).Decode(ctx, data, &out))
	assert.Equal(t, body, out)
}
