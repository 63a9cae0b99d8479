package connector

import (
	"context"
	"net"
	"time"

	"github.com/blang/semver/v4"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/wirecodec/internal/network"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/handshake"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/metrics"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/util/retry"
)

// Config 描述客户端连接的基础配置。
type Config struct {
	// Codec 为当前连接使用的编解码器，必填。
	Codec     codec.Codec
	Handshake handshake.Config
	Session   session.Config

	RecvQueueSize int
	// ReadTimeout 为等待单帧的最长时间，为 0 表示不限制。
	ReadTimeout time.Duration
	DialTimeout time.Duration

	// DialRetry 控制单次 Dial 内的重试。
	DialRetry []retry.Option
	// Reconnect 控制 KeepConnected 断线后的退避。
	Reconnect []retry.Option
}

const defaultRecvQueueSize = 1024

// ClientConn 抽象了客户端侧的一条连接。
//
// 在 Session 的基础上增加接收队列与请求/响应配对。
type ClientConn interface {
	session.Session

	// Revision 为握手时服务端声明的修订号。
	Revision() semver.Version

	// Recv 返回非响应消息的接收队列，队列满时新消息被丢弃；连接结束后关闭。
	Recv() <-chan *packet.Packet

	// Request 发送请求并等待相同 Seq 的响应，resp 为 nil 时忽略响应体。
	// 对端回送 ErrorBody 时返回 merr.ErrRemote。
	Request(ctx context.Context, op uint32, msg any, resp any) (*packet.MessageHeader, error)

	// Done 在接收循环退出、连接完全释放后关闭。
	Done() <-chan struct{}
	// Err 返回连接结束的原因，正常关闭或尚未结束时为 nil，可并发调用。
	Err() error
}

// ConnectorHandler 描述客户端在各阶段的回调能力。
type ConnectorHandler interface {
	OnConnected(conn ClientConn)
	OnMessage(conn ClientConn, header *packet.MessageHeader, payload []byte)
	OnClosed(conn ClientConn, err error)
	OnError(conn ClientConn, stage network.Stage, err error)
}

// NopHandler 忽略所有回调，可嵌入以只覆写关心的方法。
type NopHandler struct{}

func (NopHandler) OnConnected(ClientConn)                              {}
func (NopHandler) OnMessage(ClientConn, *packet.MessageHeader, []byte) {}
func (NopHandler) OnClosed(ClientConn, error)                          {}
func (NopHandler) OnError(ClientConn, network.Stage, error)            {}

// Connector 抽象了客户端的拨号器。
type Connector interface {
	// Dial 建立连接并完成握手，失败时按 Config.DialRetry 重试。
	Dial(ctx context.Context, addr string, h ConnectorHandler) (ClientConn, error)

	// KeepConnected 保持到 addr 的连接，断线后按 Config.Reconnect 退避重连，直到 ctx 结束。
	// 握手被拒绝时直接返回。
	KeepConnected(ctx context.Context, addr string, h ConnectorHandler) error
}

// tcpConnector 是基于 TCP 的默认 Connector 实现。
type tcpConnector struct {
	cfg    Config
	nextID atomic.Uint64
}

// NewTCPConnector 创建一个基于 TCP 的 Connector。
func NewTCPConnector(cfg Config) (Connector, error) {
	if cfg.Codec == nil {
		return nil, merr.WrapErrParameterInvalidMsg("connector: codec is nil")
	}
	if cfg.RecvQueueSize <= 0 {
		cfg.RecvQueueSize = defaultRecvQueueSize
	}
	return &tcpConnector{cfg: cfg}, nil
}

func (c *tcpConnector) Dial(ctx context.Context, addr string, h ConnectorHandler) (ClientConn, error) {
	if addr == "" {
		return nil, merr.WrapErrParameterInvalidMsg("connector: addr is empty")
	}
	if h == nil {
		h = NopHandler{}
	}

	var (
		conn net.Conn
		rev  semver.Version
	)
	err := retry.Do(ctx, func() error {
		var err error
		conn, rev, err = c.dialOnce(ctx, addr)
		return err
	}, c.cfg.DialRetry...)
	if err != nil {
		return nil, err
	}

	id := c.nextID.Inc()
	// 连接的生命周期不受 Dial 的超时约束，只继承 ctx 中的值。
	cc := newClientConn(context.WithoutCancel(ctx), id, conn, rev, c.cfg, h)
	cc.Logger().Info("connector connected",
		zap.String("addr", addr),
		zap.Stringer("revision", rev))
	cc.OnConnected()
	h.OnConnected(cc)
	cc.start()
	return cc, nil
}

// dialOnce 拨号并完成握手；握手被拒绝时标记为不可恢复，避免无意义的重试。
func (c *tcpConnector) dialOnce(ctx context.Context, addr string) (net.Conn, semver.Version, error) {
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, semver.Version{}, ctxErr
		}
		return nil, semver.Version{}, merr.WrapErrServiceUnavailable(addr, err.Error())
	}

	rev, err := c.cfg.Handshake.Client(ctx, conn)
	if err != nil {
		_ = conn.Close()
		err = network.ObserveError(network.StageHandshake, err)
		if errors.Is(err, merr.ErrHandshakeRejected) {
			return nil, rev, retry.Unrecoverable(err)
		}
		return nil, rev, err
	}
	return conn, rev, nil
}

func (c *tcpConnector) KeepConnected(ctx context.Context, addr string, h ConnectorHandler) error {
	logger := log.Ctx(ctx).With(zap.String("addr", addr))
	b := retry.NewBackOff(c.cfg.Reconnect...)
	reconnecting := false

	for {
		cc, err := c.Dial(ctx, addr, h)
		switch {
		case err == nil:
			if reconnecting {
				metrics.NetworkReconnects.WithLabelValues(metrics.SuccessLabel).Inc()
			}
			b.Reset()
			select {
			case <-cc.Done():
				logger.Warn("connection lost", zap.Error(cc.Err()))
			case <-ctx.Done():
				_ = cc.Close()
				<-cc.Done()
				return ctx.Err()
			}
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, merr.ErrHandshakeRejected):
			return err
		default:
			if reconnecting {
				metrics.NetworkReconnects.WithLabelValues(metrics.FailLabel).Inc()
			}
			logger.Warn("dial failed", zap.Error(err))
		}

		reconnecting = true
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return merr.WrapErrServiceUnavailable(addr, "reconnect gave up")
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
