package connector

import (
	"context"
	"net"
	"sync"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/wirecodec/internal/network"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/util/conc"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// clientConn 是 ClientConn 的默认实现，发送路径复用 BaseSession。
type clientConn struct {
	*session.BaseSession

	cfg      Config
	h        ConnectorHandler
	revision semver.Version

	recvChan chan *packet.Packet

	mu sync.Mutex
	// pending 为等待响应的请求，按 Seq 索引；连接结束后置为 nil。
	pending map[uint64]chan *packet.Packet

	done chan struct{}
	err  atomic.Error
}

var _ ClientConn = (*clientConn)(nil)

func newClientConn(ctx context.Context, id uint64, conn net.Conn, rev semver.Version, cfg Config, h ConnectorHandler) *clientConn {
	return &clientConn{
		BaseSession: session.NewBaseSession(ctx, id, conn, cfg.Codec, cfg.Session),
		cfg:         cfg,
		h:           h,
		revision:    rev,
		recvChan:    make(chan *packet.Packet, cfg.RecvQueueSize),
		pending:     make(map[uint64]chan *packet.Packet),
		done:        make(chan struct{}),
	}
}

func (c *clientConn) start() {
	_ = conc.Go(func() (struct{}, error) {
		c.recvLoop()
		return struct{}{}, nil
	})
}

func (c *clientConn) Revision() semver.Version    { return c.revision }
func (c *clientConn) Recv() <-chan *packet.Packet { return c.recvChan }
func (c *clientConn) Done() <-chan struct{}       { return c.done }
func (c *clientConn) Err() error                  { return c.err.Load() }

func (c *clientConn) Request(ctx context.Context, op uint32, msg any, resp any) (*packet.MessageHeader, error) {
	seq := c.NextSeq()
	ch := make(chan *packet.Packet, 1)

	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return nil, merr.WrapErrSessionClosed(c.ID(), "request on closed connection")
	}
	c.pending[seq] = ch
	c.mu.Unlock()
	defer c.forget(seq)

	if err := c.SendWithHeader(packet.NewHeader(op, seq), msg); err != nil {
		return nil, err
	}

	select {
	case pkt, ok := <-ch:
		if !ok {
			return nil, merr.WrapErrSessionClosed(c.ID(), "connection closed before response")
		}
		return pkt.Header, c.unmarshalResponse(pkt, resp)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *clientConn) unmarshalResponse(pkt *packet.Packet, resp any) error {
	ser := c.Codec().Serializer()
	if pkt.Header.HasFlag(packet.FlagError) {
		var body packet.ErrorBody
		if err := ser.Unmarshal(pkt.Payload, &body); err != nil {
			return err
		}
		return merr.WrapErrRemote(int32(body.Code), string(body.Message))
	}
	if resp == nil || len(pkt.Payload) == 0 {
		return nil
	}
	return ser.Unmarshal(pkt.Payload, resp)
}

func (c *clientConn) forget(seq uint64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

// deliver 把响应交给等待中的 Request，没有等待者时返回 false。
func (c *clientConn) deliver(pkt *packet.Packet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[uint64(pkt.Header.Seq)]
	if !ok {
		return false
	}
	delete(c.pending, uint64(pkt.Header.Seq))
	ch <- pkt
	return true
}

// recvLoop 持续读取并解码消息帧，退出时负责释放连接并触发 OnClosed。
func (c *clientConn) recvLoop() {
	ctx := c.Context()
	var cause error
	defer func() { c.finish(cause) }()

	for {
		header, payload, err := c.readFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || network.IsClosed(err) {
				return
			}
			stage := network.StageDecode
			if errors.IsAny(err, merr.ErrIo, context.DeadlineExceeded) {
				stage = network.StageRecvRaw
			}
			c.h.OnError(c, stage, network.ObserveError(stage, err))
			cause = err
			return
		}

		pkt := &packet.Packet{Header: header, Payload: payload}
		if header.HasFlag(packet.FlagResponse) && c.deliver(pkt) {
			continue
		}

		select {
		case c.recvChan <- pkt:
		default:
			c.Logger().RatedWarn(1, "connector: recv queue full, message dropped",
				log.FieldOp(uint32(header.Op)), log.FieldSize(len(payload)))
		}
		c.h.OnMessage(c, header, payload)
	}
}

func (c *clientConn) readFrame(ctx context.Context) (*packet.MessageHeader, []byte, error) {
	if c.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}
	return c.Codec().DecodeRaw(ctx, c.Conn())
}

func (c *clientConn) finish(cause error) {
	c.mu.Lock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = nil
	c.mu.Unlock()

	_ = c.BaseSession.Close()
	close(c.recvChan)

	c.err.Store(cause)
	c.OnDisconnected(cause)
	c.h.OnClosed(c, cause)
	c.Logger().Info("connector closed", zap.Error(cause))
	close(c.done)
}
