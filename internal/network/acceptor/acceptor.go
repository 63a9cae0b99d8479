package acceptor

import (
	"context"
	"net"
	"time"

	network "github.com/lk2023060901/wirecodec/internal/network"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/handshake"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/session"
)

// Config 描述 Acceptor 在会话层面的配置。
type Config struct {
	// Handshake 为服务端握手配置，连接建立后先完成握手再创建会话。
	Handshake handshake.Config

	// ReadTimeout 为单帧读取的超时时间，为 0 表示不设置；超时交由 Handler.OnTimeout 决定是否断开。
	ReadTimeout time.Duration

	// DispatchPoolSize 为业务回调协程池容量，<= 0 时按 CPU 数量设置。
	DispatchPoolSize int

	// InboundQueueSize 为每个会话已解码、待处理的消息队列容量。
	InboundQueueSize int
}

const defaultInboundQueueSize = 1024

// Handler 由框架使用者实现，用于在服务器侧的各个阶段插入自定义逻辑。
//
// 同一会话上的 OnMessage 严格按到达顺序串行调用，不同会话之间并发执行。
type Handler interface {
	// OnAccept 在握手成功后被调用，用于创建 Session（通常返回 session.NewBaseSession）。
	OnAccept(ctx context.Context, conn net.Conn, id uint64, c codec.Codec) (session.Session, error)

	// OnMessage 在成功读出一帧后被调用，payload 为尚未反序列化的业务字节。
	OnMessage(sess session.Session, header *packet.MessageHeader, payload []byte)

	// OnSessionClosed 在会话生命周期结束时被调用，正常关闭时 err 为 nil。
	OnSessionClosed(sess session.Session, err error)

	// OnError 在各个阶段发生错误时被调用，握手阶段 sess 为 nil。
	OnError(sess session.Session, stage network.Stage, err error)

	// OnTimeout 在读超时时被调用，返回非 nil 时结束该会话。
	OnTimeout(sess session.Session) error
}

// Acceptor 抽象了服务器侧的 TCP 接入层。
//
// 职责：
//   - 在 listener 上接受连接并完成握手；
//   - 为每个连接创建 Session，并调用 Handler 的各阶段回调；
//   - 通过 SessionManager 维护当前活跃会话。
type Acceptor interface {
	// Serve 启动接入循环，阻塞直至 ctx 取消、Close 被调用或出现致命错误。
	Serve(ctx context.Context, h Handler) error

	// Close 关闭 listener 以及所有会话。
	Close() error

	// Addr 返回实际监听地址。
	Addr() net.Addr
}
