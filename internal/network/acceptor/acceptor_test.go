package acceptor

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/framer"
	"github.com/lk2023060901/wirecodec/internal/network/handshake"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/router"
	"github.com/lk2023060901/wirecodec/internal/network/serializer"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

const (
	opEcho     = 1
	opEchoResp = 2
	opFail     = 3
	opFailResp = 4
)

type AcceptorSuite struct {
	suite.Suite

	codec    codec.Codec
	hs       handshake.Config
	acceptor *BaseAcceptor
	cancel   context.CancelFunc
	served   chan error
	closed   chan uint64
}

func (s *AcceptorSuite) SetupTest() {
	cfg := wire.DefaultConfig()
	c, err := codec.New(codec.Options{
		Framer:     framer.NewLengthPrefixedFramer(cfg, 1<<16),
		Serializer: serializer.WireSerializer{Config: cfg},
	})
	s.Require().NoError(err)
	s.codec = c

	s.hs, err = handshake.NewConfig("1.2.0", ">=1.0.0 <2.0.0", wire.LittleEndian)
	s.Require().NoError(err)

	r := router.New(c.Serializer())
	s.Require().NoError(r.Register(opEcho, router.Route{
		NewRequest: func() any { return new(wire.Str) },
		Handler: func(_ session.Session, req any) (any, error) {
			return wire.Str(strings.ToUpper(string(*req.(*wire.Str)))), nil
		},
		RespOp: opEchoResp,
	}))
	s.Require().NoError(r.Register(opFail, router.Route{
		NewRequest: func() any { return new(wire.U32) },
		Handler: func(_ session.Session, req any) (any, error) {
			return nil, merr.WrapErrParameterInvalidMsg("bad value %d", *req.(*wire.U32))
		},
		RespOp: opFailResp,
	}))

	s.acceptor, err = NewTCPAcceptor("127.0.0.1:0", c, nil, Config{Handshake: s.hs, DispatchPoolSize: 4})
	s.Require().NoError(err)

	s.closed = make(chan uint64, 8)
	h := NewRouterHandler(r, session.Config{WriteTimeout: time.Second})
	h.OnClosed = func(sess session.Session, _ error) { s.closed <- sess.ID() }

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.served = make(chan error, 1)
	go func() { s.served <- s.acceptor.Serve(ctx, h) }()
}

func (s *AcceptorSuite) TearDownTest() {
	s.cancel()
	select {
	case <-s.served:
	case <-time.After(5 * time.Second):
		s.Fail("acceptor did not stop")
	}
}

func (s *AcceptorSuite) dial(hs handshake.Config) net.Conn {
	conn, err := net.DialTimeout("tcp", s.acceptor.Addr().String(), time.Second)
	s.Require().NoError(err)
	_, err = hs.Client(context.Background(), conn)
	if err != nil {
		_ = conn.Close()
	}
	s.Require().NoError(err)
	return conn
}

func (s *AcceptorSuite) TestEchoRoundTrip() {
	conn := s.dial(s.hs)
	defer conn.Close()
	ctx := context.Background()

	for seq, word := range []string{"ping", "pong"} {
		s.Require().NoError(s.codec.Encode(ctx, conn, packet.NewHeader(opEcho, uint64(seq+1)), wire.Str(word)))

		var out wire.Str
		header, err := s.codec.Decode(ctx, conn, &out)
		s.Require().NoError(err)
		s.Equal(wire.U32(opEchoResp), header.Op)
		s.Equal(wire.U64(seq+1), header.Seq)
		s.True(header.HasFlag(packet.FlagResponse))
		s.Equal(wire.Str(strings.ToUpper(word)), out)
	}
	s.Equal(1, s.acceptor.Sessions().Count())
}

func (s *AcceptorSuite) TestHandlerErrorReply() {
	conn := s.dial(s.hs)
	defer conn.Close()
	ctx := context.Background()

	s.Require().NoError(s.codec.Encode(ctx, conn, packet.NewHeader(opFail, 5), wire.U32(9)))

	var body packet.ErrorBody
	header, err := s.codec.Decode(ctx, conn, &body)
	s.Require().NoError(err)
	s.Equal(wire.U32(opFailResp), header.Op)
	s.Equal(wire.U64(5), header.Seq)
	s.True(header.HasFlag(packet.FlagError))
	s.Equal(wire.I32(merr.Code(merr.ErrParameterInvalid)), body.Code)
	s.Contains(string(body.Message), "bad value 9")
}

func (s *AcceptorSuite) TestUnknownOpKeepsSession() {
	conn := s.dial(s.hs)
	defer conn.Close()
	ctx := context.Background()

	s.Require().NoError(s.codec.Encode(ctx, conn, packet.NewHeader(99, 1), wire.Unit{}))
	s.Require().NoError(s.codec.Encode(ctx, conn, packet.NewHeader(opEcho, 2), wire.Str("still")))

	var out wire.Str
	header, err := s.codec.Decode(ctx, conn, &out)
	s.Require().NoError(err)
	s.Equal(wire.U64(2), header.Seq)
	s.Equal(wire.Str("STILL"), out)
}

func (s *AcceptorSuite) TestHandshakeRejected() {
	old, err := handshake.NewConfig("2.1.0", ">=1.0.0", wire.LittleEndian)
	s.Require().NoError(err)

	conn, err := net.DialTimeout("tcp", s.acceptor.Addr().String(), time.Second)
	s.Require().NoError(err)
	defer conn.Close()

	_, err = old.Client(context.Background(), conn)
	s.ErrorIs(err, merr.ErrHandshakeRejected)
	s.Equal(0, s.acceptor.Sessions().Count())
}

func (s *AcceptorSuite) TestPeerCloseReleasesSession() {
	conn := s.dial(s.hs)
	s.Require().NoError(s.codec.Encode(context.Background(), conn, packet.NewHeader(opEcho, 1), wire.Str("x")))
	var out wire.Str
	_, err := s.codec.Decode(context.Background(), conn, &out)
	s.Require().NoError(err)
	s.Require().NoError(conn.Close())

	select {
	case id := <-s.closed:
		s.NotZero(id)
	case <-time.After(5 * time.Second):
		s.Fail("session not released")
	}
	s.Eventually(func() bool { return s.acceptor.Sessions().Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func (s *AcceptorSuite) TestCloseStopsServe() {
	conn := s.dial(s.hs)
	defer conn.Close()
	s.Eventually(func() bool { return s.acceptor.Sessions().Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	s.Require().NoError(s.acceptor.Close())
	select {
	case err := <-s.served:
		s.NoError(err)
		// TearDownTest 仍会读取 served。
		s.served <- nil
	case <-time.After(5 * time.Second):
		s.Fail("serve did not return")
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := s.codec.DecodeRaw(context.Background(), conn)
	s.Error(err)
}

func TestAcceptor(t *testing.T) {
	suite.Run(t, new(AcceptorSuite))
}

func TestNewBaseAcceptorValidation(t *testing.T) {
	_, err := NewBaseAcceptor(nil, nil, nil, Config{})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, err = NewTCPAcceptor("", nil, nil, Config{})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	_, err = NewBaseAcceptor(ln, nil, nil, Config{})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestReadTimeoutClosesSession(t *testing.T) {
	cfg := wire.DefaultConfig()
	c, err := codec.New(codec.Options{
		Framer:     framer.NewLengthPrefixedFramer(cfg, 0),
		Serializer: serializer.WireSerializer{Config: cfg},
	})
	require.NoError(t, err)
	hs, err := handshake.NewConfig("1.0.0", ">=1.0.0", wire.LittleEndian)
	require.NoError(t, err)

	a, err := NewTCPAcceptor("127.0.0.1:0", c, nil, Config{Handshake: hs, ReadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	closed := make(chan error, 1)
	h := NewRouterHandler(router.New(c.Serializer()), session.Config{})
	h.OnClosed = func(_ session.Session, err error) { closed <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Serve(ctx, h) }()

	conn, err := net.DialTimeout("tcp", a.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, err = hs.Client(ctx, conn)
	require.NoError(t, err)

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, merr.ErrSessionClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("idle session was not closed")
	}
}
