package acceptor

import (
	"context"
	"net"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/wirecodec/internal/network"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/util/conc"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// BaseAcceptor 是 Acceptor 接口的基础 TCP 实现。
//
//   - 每个连接由独立的读协程解码，解码结果进入会话级队列；
//   - 队列中的消息依次提交到共享的 conc.Pool 执行并等待完成，保证同一会话上 Handler 串行执行，
//     同时限制全局业务回调并发度。
type BaseAcceptor struct {
	ln       net.Listener
	codec    codec.Codec
	sessions session.SessionManager
	cfg      Config

	pool   *conc.Pool[struct{}]
	nextID atomic.Uint64
	closed atomic.Bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ Acceptor = (*BaseAcceptor)(nil)

// inboundFrame 表示一条已解码但尚未交由业务处理的消息帧。
type inboundFrame struct {
	header  *packet.MessageHeader
	payload []byte
}

// NewBaseAcceptor 使用已有的 Listener 创建一个基础接入器。
//
// sm 为 nil 时使用内部的 BaseSessionManager。
func NewBaseAcceptor(ln net.Listener, c codec.Codec, sm session.SessionManager, cfg Config) (*BaseAcceptor, error) {
	if ln == nil {
		return nil, merr.WrapErrParameterInvalidMsg("acceptor: listener is nil")
	}
	if c == nil {
		return nil, merr.WrapErrParameterInvalidMsg("acceptor: codec is nil")
	}
	if sm == nil {
		sm = session.NewBaseSessionManager()
	}
	if cfg.InboundQueueSize <= 0 {
		cfg.InboundQueueSize = defaultInboundQueueSize
	}

	var pool *conc.Pool[struct{}]
	if cfg.DispatchPoolSize > 0 {
		pool = conc.NewPool[struct{}](cfg.DispatchPoolSize)
	} else {
		pool = conc.NewDefaultPool[struct{}]()
	}

	return &BaseAcceptor{
		ln:       ln,
		codec:    c,
		sessions: sm,
		cfg:      cfg,
		pool:     pool,
	}, nil
}

// NewTCPAcceptor 在给定地址上监听 TCP，并创建一个基础接入器。
func NewTCPAcceptor(addr string, c codec.Codec, sm session.SessionManager, cfg Config) (*BaseAcceptor, error) {
	if addr == "" {
		return nil, merr.WrapErrParameterInvalidMsg("acceptor: addr is empty")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, merr.WrapErrIo(err, "listen "+addr)
	}
	return NewBaseAcceptor(ln, c, sm, cfg)
}

func (a *BaseAcceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Sessions 返回接入器使用的会话管理器。
func (a *BaseAcceptor) Sessions() session.SessionManager {
	return a.sessions
}

// Serve 实现 Acceptor.Serve。
func (a *BaseAcceptor) Serve(ctx context.Context, h Handler) error {
	if h == nil {
		return merr.WrapErrParameterInvalidMsg("acceptor: handler is nil")
	}

	// ctx 结束时关闭 listener，使 Accept 返回。
	stop := context.AfterFunc(ctx, func() { _ = a.Close() })
	defer stop()
	defer a.pool.Release()
	defer a.wg.Wait()

	log.Ctx(ctx).Info("acceptor serving", zap.Stringer("addr", a.ln.Addr()))
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if a.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if terr := h.OnTimeout(nil); terr != nil {
					return terr
				}
				continue
			}
			return merr.WrapErrIo(err, "accept")
		}

		a.wg.Add(1)
		_ = conc.Go(func() (struct{}, error) {
			defer a.wg.Done()
			a.handleConnection(ctx, conn, h)
			return struct{}{}, nil
		})
	}
}

// Close 实现 Acceptor.Close：关闭 listener 并关闭所有在线会话。
func (a *BaseAcceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		err = a.ln.Close()
		a.sessions.Range(func(sess session.Session) bool {
			_ = sess.Close()
			return true
		})
	})
	if network.IsClosed(err) {
		return nil
	}
	return err
}

// handleConnection 处理单个连接的生命周期。
//
// 流程：
//  1. 服务端握手，失败时回调 OnError(nil, StageHandshake, err) 并断开；
//  2. 调用 Handler.OnAccept 创建 Session 并注册到 SessionManager；
//  3. 读协程循环解码帧并投递到会话级队列，当前协程按顺序分发到协程池；
//  4. 结束时调用 sess.OnDisconnected 与 Handler.OnSessionClosed。
func (a *BaseAcceptor) handleConnection(parentCtx context.Context, conn net.Conn, h Handler) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if _, err := a.cfg.Handshake.Server(ctx, conn); err != nil {
		h.OnError(nil, network.StageHandshake, network.ObserveError(network.StageHandshake, err))
		_ = conn.Close()
		return
	}

	id := a.nextID.Inc()
	sess, err := h.OnAccept(ctx, conn, id, a.codec)
	if err != nil || sess == nil {
		if err != nil {
			h.OnError(nil, network.StageHandshake, err)
		}
		_ = conn.Close()
		return
	}

	if err := a.sessions.Register(sess); err != nil {
		h.OnError(sess, network.StageHandshake, err)
		_ = sess.Close()
		return
	}
	defer func() {
		_ = a.sessions.Unregister(sess.ID())
	}()

	// 注册与 Close 存在竞争：Close 已经遍历过会话时，这里负责关闭。
	if a.closed.Load() {
		_ = sess.Close()
		return
	}

	sess.OnConnected()

	var cause error
	defer func() {
		sess.OnDisconnected(cause)
		h.OnSessionClosed(sess, cause)
		_ = sess.Close()
	}()

	frames := make(chan inboundFrame, a.cfg.InboundQueueSize)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		cause = a.readLoop(sess, conn, h, frames)
		close(frames)
	}()

	for frame := range frames {
		future := a.pool.Submit(func() (struct{}, error) {
			h.OnMessage(sess, frame.header, frame.payload)
			return struct{}{}, nil
		})
		if err := future.Err(); err != nil {
			h.OnError(sess, network.StageDispatch, network.ObserveError(network.StageDispatch, err))
		}
	}
	<-readDone
}

// readLoop 持续从连接中读取并解码消息帧，将结果写入 frames 通道。
//
// 返回 nil 表示正常结束（对端关闭或会话被关闭）。
func (a *BaseAcceptor) readLoop(sess session.Session, conn net.Conn, h Handler, frames chan<- inboundFrame) error {
	sessCtx := sess.Context()
	for {
		if sessCtx.Err() != nil {
			return nil
		}

		header, payload, err := a.readFrame(sessCtx, conn)
		if err != nil {
			if sessCtx.Err() != nil || network.IsClosed(err) {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if terr := h.OnTimeout(sess); terr != nil {
					return terr
				}
				continue
			}
			stage := network.StageDecode
			if errors.Is(err, merr.ErrIo) {
				stage = network.StageRecvRaw
			}
			h.OnError(sess, stage, network.ObserveError(stage, err))
			return err
		}

		select {
		case frames <- inboundFrame{header: header, payload: payload}:
		case <-sessCtx.Done():
			return nil
		}
	}
}

func (a *BaseAcceptor) readFrame(ctx context.Context, conn net.Conn) (*packet.MessageHeader, []byte, error) {
	if a.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ReadTimeout)
		defer cancel()
	}
	return a.codec.DecodeRaw(ctx, conn)
}
