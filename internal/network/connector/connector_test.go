package connector

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/lk2023060901/wirecodec/internal/network/acceptor"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/framer"
	"github.com/lk2023060901/wirecodec/internal/network/handshake"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/router"
	"github.com/lk2023060901/wirecodec/internal/network/serializer"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/util/retry"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

const (
	opEcho     = 1
	opEchoResp = 2
	opFail     = 3
	opFailResp = 4
	opPush     = 5
	opNotify   = 6
)

func newTestCodec(t *testing.T) codec.Codec {
	t.Helper()
	cfg := wire.DefaultConfig()
	c, err := codec.New(codec.Options{
		Framer:     framer.NewLengthPrefixedFramer(cfg, 1<<16),
		Serializer: serializer.WireSerializer{Config: cfg},
	})
	require.NoError(t, err)
	return c
}

func newHandshake(t *testing.T, rev string) handshake.Config {
	t.Helper()
	hs, err := handshake.NewConfig(rev, ">=1.0.0 <2.0.0", wire.LittleEndian)
	require.NoError(t, err)
	return hs
}

// recordHandler 记录连接回调。
type recordHandler struct {
	NopHandler
	connected atomic.Int32
	closed    chan error
	messages  chan wire.U32
}

func newRecordHandler() *recordHandler {
	return &recordHandler{closed: make(chan error, 8), messages: make(chan wire.U32, 8)}
}

func (h *recordHandler) OnConnected(ClientConn) { h.connected.Inc() }

func (h *recordHandler) OnClosed(_ ClientConn, err error) { h.closed <- err }

func (h *recordHandler) OnMessage(_ ClientConn, header *packet.MessageHeader, _ []byte) {
	h.messages <- header.Op
}

type ConnectorSuite struct {
	suite.Suite

	codec    codec.Codec
	acceptor *acceptor.BaseAcceptor
	cancel   context.CancelFunc
	served   chan error
}

func (s *ConnectorSuite) SetupTest() {
	s.codec = newTestCodec(s.T())

	r := router.New(s.codec.Serializer())
	s.Require().NoError(r.Register(opEcho, router.Route{
		NewRequest: func() any { return new(wire.Str) },
		Handler: func(_ session.Session, req any) (any, error) {
			return wire.Str(strings.ToUpper(string(*req.(*wire.Str)))), nil
		},
		RespOp: opEchoResp,
	}))
	s.Require().NoError(r.Register(opFail, router.Route{
		NewRequest: func() any { return new(wire.Unit) },
		Handler: func(session.Session, any) (any, error) {
			return nil, merr.WrapErrOperationNotSupported("fail")
		},
		RespOp: opFailResp,
	}))
	// opPush 让服务端主动推送一条 opNotify。
	s.Require().NoError(r.Register(opPush, router.Route{
		NewRequest: func() any { return new(wire.Unit) },
		Handler: func(sess session.Session, _ any) (any, error) {
			return nil, sess.Send(opNotify, wire.U8(1))
		},
	}))

	var err error
	s.acceptor, err = acceptor.NewTCPAcceptor("127.0.0.1:0", s.codec, nil, acceptor.Config{Handshake: newHandshake(s.T(), "1.3.0")})
	s.Require().NoError(err)

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.served = make(chan error, 1)
	h := acceptor.NewRouterHandler(r, session.Config{WriteTimeout: time.Second})
	go func() { s.served <- s.acceptor.Serve(ctx, h) }()
}

func (s *ConnectorSuite) TearDownTest() {
	s.cancel()
	<-s.served
}

func (s *ConnectorSuite) newConnector(rev string, opts ...retry.Option) Connector {
	c, err := NewTCPConnector(Config{
		Codec:     s.codec,
		Handshake: newHandshake(s.T(), rev),
		Session:   session.Config{WriteTimeout: time.Second},
		DialRetry: append([]retry.Option{retry.Attempts(2), retry.Sleep(10 * time.Millisecond)}, opts...),
		Reconnect: []retry.Option{retry.Attempts(0), retry.Sleep(10 * time.Millisecond), retry.MaxSleepTime(50 * time.Millisecond)},
	})
	s.Require().NoError(err)
	return c
}

func (s *ConnectorSuite) addr() string {
	return s.acceptor.Addr().String()
}

func (s *ConnectorSuite) TestRequestResponse() {
	h := newRecordHandler()
	cc, err := s.newConnector("1.0.0").Dial(context.Background(), s.addr(), h)
	s.Require().NoError(err)
	defer cc.Close()

	s.Equal("1.3.0", cc.Revision().String())
	s.Equal(int32(1), h.connected.Load())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out wire.Str
	header, err := cc.Request(ctx, opEcho, wire.Str("hello"), &out)
	s.Require().NoError(err)
	s.Equal(wire.Str("HELLO"), out)
	s.Equal(wire.U32(opEchoResp), header.Op)
	s.True(header.HasFlag(packet.FlagResponse))
}

func (s *ConnectorSuite) TestRemoteError() {
	cc, err := s.newConnector("1.0.0").Dial(context.Background(), s.addr(), nil)
	s.Require().NoError(err)
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	header, err := cc.Request(ctx, opFail, wire.Unit{}, nil)
	s.ErrorIs(err, merr.ErrRemote)
	s.Contains(err.Error(), "fail")
	s.True(header.HasFlag(packet.FlagError))
	raw, ok := merr.RawValue(err)
	s.True(ok)
	s.Equal(merr.Code(merr.ErrOperationNotSupported), raw)
}

func (s *ConnectorSuite) TestServerPush() {
	h := newRecordHandler()
	cc, err := s.newConnector("1.0.0").Dial(context.Background(), s.addr(), h)
	s.Require().NoError(err)
	defer cc.Close()

	s.Require().NoError(cc.Send(opPush, wire.Unit{}))

	select {
	case pkt := <-cc.Recv():
		s.Equal(wire.U32(opNotify), pkt.Header.Op)
		var v wire.U8
		s.Require().NoError(s.codec.Serializer().Unmarshal(pkt.Payload, &v))
		s.Equal(wire.U8(1), v)
	case <-time.After(5 * time.Second):
		s.Fail("push not received")
	}
	s.Equal(wire.U32(opNotify), <-h.messages)
}

func (s *ConnectorSuite) TestHandshakeRejectedIsNotRetried() {
	c := s.newConnector("3.0.0", retry.Attempts(5), retry.Sleep(time.Second))
	start := time.Now()
	_, err := c.Dial(context.Background(), s.addr(), nil)
	s.ErrorIs(err, merr.ErrHandshakeRejected)
	s.Less(time.Since(start), time.Second)

	err = c.KeepConnected(context.Background(), s.addr(), nil)
	s.ErrorIs(err, merr.ErrHandshakeRejected)
}

func (s *ConnectorSuite) TestCloseFailsPendingAndNotifies() {
	h := newRecordHandler()
	cc, err := s.newConnector("1.0.0").Dial(context.Background(), s.addr(), h)
	s.Require().NoError(err)

	s.Require().NoError(cc.Close())
	select {
	case <-cc.Done():
	case <-time.After(5 * time.Second):
		s.Fail("connection not released")
	}
	s.NoError(cc.Err())
	s.NoError(<-h.closed)

	_, ok := <-cc.Recv()
	s.False(ok)

	_, err = cc.Request(context.Background(), opEcho, wire.Str("late"), nil)
	s.ErrorIs(err, merr.ErrSessionClosed)
}

func (s *ConnectorSuite) TestErrReadableWhileClosing() {
	cc, err := s.newConnector("1.0.0").Dial(context.Background(), s.addr(), nil)
	s.Require().NoError(err)

	// 接收循环结束时写入原因，其他 goroutine 可以在 Done 之前并发读取。
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			_ = cc.Err()
			select {
			case <-cc.Done():
				return
			default:
			}
		}
	}()

	s.Eventually(func() bool { return s.acceptor.Sessions().Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	s.acceptor.Sessions().Range(func(sess session.Session) bool {
		_ = sess.Close()
		return true
	})
	select {
	case <-polled:
	case <-time.After(5 * time.Second):
		s.Fail("connection not released")
	}
	_ = cc.Err()
	_ = cc.Close()
}

func (s *ConnectorSuite) TestKeepConnectedReconnects() {
	h := newRecordHandler()
	c := s.newConnector("1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.KeepConnected(ctx, s.addr(), h) }()

	s.Eventually(func() bool { return s.acceptor.Sessions().Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	// 服务端踢掉会话，客户端应自动重连。
	s.acceptor.Sessions().Range(func(sess session.Session) bool {
		_ = sess.Close()
		return true
	})
	s.Eventually(func() bool { return h.connected.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		s.Fail("KeepConnected did not return")
	}
}

func TestConnector(t *testing.T) {
	suite.Run(t, new(ConnectorSuite))
}

func TestDialUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewTCPConnector(Config{
		Codec:       newTestCodec(t),
		Handshake:   newHandshake(t, "1.0.0"),
		DialTimeout: time.Second,
		DialRetry:   []retry.Option{retry.Attempts(2), retry.Sleep(10 * time.Millisecond)},
	})
	require.NoError(t, err)

	_, err = c.Dial(context.Background(), addr, nil)
	assert.ErrorIs(t, err, merr.ErrServiceUnavailable)
	assert.True(t, merr.IsRetryableErr(err))

	_, err = c.Dial(context.Background(), "", nil)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestNewTCPConnectorRequiresCodec(t *testing.T) {
	_, err := NewTCPConnector(Config{})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
