package session

import (
	"sync"

	"github.com/lk2023060901/wirecodec/pkg/metrics"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// BaseSessionManager 提供了基于内存 map 的 SessionManager 实现。
//
// 特性：
//   - 使用读写锁保证并发安全；
//   - Register 在遇到重复 ID 时返回错误，避免覆盖旧会话；
//   - Range 在遍历前复制一份会话切片，避免在持锁情况下执行用户回调。
type BaseSessionManager struct {
	mu       sync.RWMutex
	sessions map[uint64]Session
}

var _ SessionManager = (*BaseSessionManager)(nil)

// NewBaseSessionManager 创建一个空的 BaseSessionManager。
func NewBaseSessionManager() *BaseSessionManager {
	return &BaseSessionManager{
		sessions: make(map[uint64]Session),
	}
}

func (m *BaseSessionManager) Register(sess Session) error {
	if sess == nil {
		return merr.WrapErrParameterInvalidMsg("session: nil session")
	}
	id := sess.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return merr.WrapErrParameterInvalidMsg("session: id %d already registered", id)
	}
	m.sessions[id] = sess
	metrics.NetworkSessions.Inc()
	return nil
}

func (m *BaseSessionManager) Get(id uint64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *BaseSessionManager) Unregister(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return merr.WrapErrSessionClosed(id, "not registered")
	}
	delete(m.sessions, id)
	metrics.NetworkSessions.Dec()
	return nil
}

func (m *BaseSessionManager) Range(fn func(sess Session) bool) {
	if fn == nil {
		return
	}

	m.mu.RLock()
	snapshot := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		snapshot = append(snapshot, sess)
	}
	m.mu.RUnlock()

	for _, sess := range snapshot {
		if !fn(sess) {
			return
		}
	}
}

func (m *BaseSessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *BaseSessionManager) Broadcast(op uint32, msg any) int {
	failed := 0
	m.Range(func(sess Session) bool {
		if err := sess.Send(op, msg); err != nil {
			failed++
		}
		return true
	})
	return failed
}
