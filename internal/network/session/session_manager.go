package session

// SessionManager 维护当前所有在线会话的索引。
//
// 职责说明：
//   - 只负责会话的注册、查询和移除，不直接创建或关闭底层连接；
//   - Session 的具体生命周期由上层的 acceptor/connector 决定；
//   - 业务层可以基于 SessionManager 实现广播、按 ID 定向发送等能力。
type SessionManager interface {
	// Register 将一个已创建好的 Session 注册到管理器中，ID 重复时返回错误。
	Register(sess Session) error

	// Get 根据 session id 查找会话。
	Get(id uint64) (sess Session, ok bool)

	// Unregister 从管理器中移除指定 id 的会话，不负责调用 sess.Close()。
	Unregister(id uint64) error

	// Range 遍历当前所有在线会话，fn 返回 false 时中断遍历。
	Range(fn func(sess Session) bool)

	// Count 返回当前已注册的会话数量。
	Count() int

	// Broadcast 向所有在线会话发送同一条消息，返回发送失败的会话数量。
	Broadcast(op uint32, msg any) int
}
