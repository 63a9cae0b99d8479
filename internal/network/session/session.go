package session

import (
	"context"
	"net"

	"github.com/lk2023060901/wirecodec/internal/network/packet"
)

// Session 抽象了一条网络会话/连接。
//
// 约定：
//   - 每个 Session 对应一条底层连接，握手完成后才会创建；
//   - Session ID 使用 64 位无符号整型，在同一个 SessionManager 内唯一。
type Session interface {
	// ID 返回该会话的唯一标识，一般由接入层自增分配。
	ID() uint64

	// Context 返回与该会话关联的上下文，会话关闭时触发 Done()。
	//
	// 上下文中的 Logger 已携带会话 ID 字段，可直接用 log.Ctx 输出。
	Context() context.Context

	RemoteAddr() net.Addr
	LocalAddr() net.Addr

	// Send 通过会话的编解码链路发送一条业务消息，序号由会话自增分配。
	//
	// 行为：
	//   - 仅投递到发送队列，由发送协程按顺序执行：序列化 -> 封装 Envelope -> 写出帧；
	//   - 会话关闭后返回 merr.ErrSessionClosed。
	Send(op uint32, msg any) error

	// SendWithHeader 使用调用方构造的报文头发送消息，常用于响应（沿用请求的 Seq）。
	SendWithHeader(header *packet.MessageHeader, msg any) error

	// Close 主动关闭该会话，多次调用是幂等的。
	Close() error

	// OnConnected 在会话注册完成后被调用一次。
	OnConnected()

	// OnDisconnected 在会话结束时被调用，err 为断开原因；正常关闭时为 nil。
	OnDisconnected(err error)
}
