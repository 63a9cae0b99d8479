package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/wirecodec/internal/network"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Config 为单个会话的收发配置。
type Config struct {
	// SendQueueSize 为发送队列容量，<= 0 时使用默认值。
	SendQueueSize int
	// WriteTimeout 为单帧写出的超时时间，为 0 表示不设置。
	WriteTimeout time.Duration
}

// defaultSendQueueSize 为每个会话的发送队列容量。
const defaultSendQueueSize = 1024

// BaseSession 提供了 Session 接口的基础实现。
//
// 设计目标：
//   - 封装最小但完整的会话能力：ID、Context、地址信息、发送与关闭；
//   - 默认实现 OnConnected/OnDisconnected 为空，方便业务在自定义 Session 中嵌入并覆写。
type BaseSession struct {
	log.Binder

	id uint64

	ctx    context.Context
	cancel context.CancelFunc

	conn  net.Conn
	codec codec.Codec
	cfg   Config

	// sendQueue 为待发送消息的对象级队列，只有 sendLoop 会写 conn。
	sendQueue chan outboundMessage
	sendDone  chan struct{}

	// seq 为本端主动发送消息的自增序号，响应沿用请求的序号。
	seq atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
}

var _ Session = (*BaseSession)(nil)

// outboundMessage 表示一条待发送的协议消息。
type outboundMessage struct {
	header *packet.MessageHeader
	msg    any
}

// NewBaseSession 创建一个基于 net.Conn 的基础 Session 实例，并启动发送协程。
//
// 参数：
//   - parent：会话所属的上层上下文（例如 Acceptor 的 Serve ctx）；若为 nil，则使用 context.Background()；
//   - id    ：会话 ID，应在调用侧保证唯一；
//   - conn  ：已完成握手的底层网络连接；
//   - c     ：用于该连接的 Codec。
func NewBaseSession(parent context.Context, id uint64, conn net.Conn, c codec.Codec, cfg Config) *BaseSession {
	if parent == nil {
		parent = context.Background()
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	ctx, cancel := context.WithCancel(log.WithSessionID(parent, id))

	s := &BaseSession{
		id:        id,
		ctx:       ctx,
		cancel:    cancel,
		conn:      conn,
		codec:     c,
		cfg:       cfg,
		sendQueue: make(chan outboundMessage, cfg.SendQueueSize),
		sendDone:  make(chan struct{}),
	}
	s.Bind(ctx, "session", zap.Stringer("remote", conn.RemoteAddr()))

	go s.sendLoop()
	return s
}

func (s *BaseSession) ID() uint64 {
	return s.id
}

func (s *BaseSession) Context() context.Context {
	return s.ctx
}

func (s *BaseSession) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *BaseSession) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Conn 返回底层连接，供接入层读取帧。
func (s *BaseSession) Conn() net.Conn {
	return s.conn
}

// Codec 返回会话使用的编解码器。
func (s *BaseSession) Codec() codec.Codec {
	return s.codec
}

// NextSeq 分配下一个本端序号。
func (s *BaseSession) NextSeq() uint64 {
	return s.seq.Inc()
}

// Send 实现 Session.Send。
func (s *BaseSession) Send(op uint32, msg any) error {
	return s.enqueue(packet.NewHeader(op, s.NextSeq()), msg)
}

// SendWithHeader 实现 Session.SendWithHeader。
func (s *BaseSession) SendWithHeader(header *packet.MessageHeader, msg any) error {
	if header == nil {
		return merr.WrapErrParameterInvalidMsg("session: header is nil")
	}
	return s.enqueue(header, msg)
}

// enqueue 只把消息投递到发送队列，避免多 goroutine 并发写 conn 导致的报文交叉。
func (s *BaseSession) enqueue(header *packet.MessageHeader, msg any) error {
	if s.closed.Load() {
		return merr.WrapErrSessionClosed(s.id)
	}
	select {
	case <-s.ctx.Done():
		return merr.WrapErrSessionClosed(s.id)
	case s.sendQueue <- outboundMessage{header: header, msg: msg}:
		return nil
	}
}

// Close 实现 Session.Close：先取消上下文，再关闭连接，并等待发送协程退出。
func (s *BaseSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		err = s.conn.Close()
		<-s.sendDone
	})
	if network.IsClosed(err) {
		return nil
	}
	return err
}

// OnConnected 默认实现为空，方便在自定义 Session 中覆写。
func (s *BaseSession) OnConnected() {}

// OnDisconnected 默认实现为空，方便在自定义 Session 中覆写。
func (s *BaseSession) OnDisconnected(error) {}

// sendLoop 为每个会话启动的专职发送协程。
//
// 序列化失败只丢弃当前消息；写出失败视为会话异常，取消上下文并关闭连接，以触发接入层的读循环退出。
func (s *BaseSession) sendLoop() {
	defer close(s.sendDone)

	for {
		select {
		case <-s.ctx.Done():
			return
		case out := <-s.sendQueue:
			err := s.write(out)
			if err == nil {
				continue
			}
			stage := sendStage(err)
			network.ObserveError(stage, err)
			if stage == network.StageEncode {
				s.Logger().RatedWarn(1, "session drop unencodable message",
					log.FieldOp(uint32(out.header.Op)),
					zap.Error(err))
				continue
			}
			if !network.IsClosed(err) {
				s.Logger().Warn("session send failed",
					log.FieldOp(uint32(out.header.Op)),
					zap.Error(err))
			}
			s.cancel()
			_ = s.conn.Close()
			return
		}
	}
}

func (s *BaseSession) write(out outboundMessage) error {
	ctx := s.ctx
	if s.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
	}
	return s.codec.Encode(ctx, s.conn, out.header, out.msg)
}

// sendStage 区分错误发生在写出之前（序列化、帧过大）还是写出过程中。
func sendStage(err error) network.Stage {
	if merr.IsCanceledOrTimeout(err) || errors.Is(err, merr.ErrIo) {
		return network.StageSend
	}
	return network.StageEncode
}
