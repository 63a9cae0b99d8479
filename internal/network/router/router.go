package router

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/serializer"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/metrics"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// Handler 是框架暴露给业务层的通用处理函数签名。
//
//   - sess：当前会话，可通过 sess.Context() 取得携带会话字段的 Logger；
//   - req ：已经反序列化的请求对象，具体类型由 Route.NewRequest 决定；
//   - resp 为 nil 时表示无需自动发送响应；err 非 nil 时若路由配置了 RespOp，会回送 ErrorBody。
type Handler func(sess session.Session, req any) (resp any, err error)

// Route 描述一条路由规则：请求协议号 -> 请求类型 + 业务 Handler + 响应协议号。
type Route struct {
	// NewRequest 必须返回指向具体请求类型的指针，例如 func() any { return new(wire.Str) }。
	NewRequest func() any

	Handler Handler

	// RespOp 为响应消息使用的协议号。
	//
	//   - 为 0 时 Router 不自动发送响应，业务可以在 Handler 内部自行调用 sess.Send；
	//   - 非 0 时响应沿用请求的 Seq，并带上 packet.FlagResponse。
	RespOp uint32
}

// Router 维护协议号到路由规则的映射，并负责从“原始帧”到业务 Handler 的完整调度流程。
//
// 典型调用链（服务器侧）：
//  1. Codec 从底层连接读取出 header + payload；
//  2. 上层调用 Router.Handle(sess, header, payload)；
//  3. Router 根据 header.Op 找到 Route，反序列化请求、调用 Handler，并按需回送响应。
type Router interface {
	// Register 为协议号 op 注册一条路由规则，同一协议号重复注册返回 merr.ErrRouteDuplicated。
	Register(op uint32, route Route) error

	// Handle 处理一条已经解析出的消息，未注册的协议号返回 merr.ErrRouteNotFound。
	Handle(sess session.Session, header *packet.MessageHeader, payload []byte) error
}

// defaultRouter 基于 map[op]Route 进行路由，使用注入的 Serializer 完成请求与响应的编解码。
type defaultRouter struct {
	ser serializer.Serializer

	mu     sync.RWMutex
	routes map[uint32]Route
}

var _ Router = (*defaultRouter)(nil)

// New 创建一个基于给定 Serializer 的 Router 实例。
func New(ser serializer.Serializer) Router {
	return &defaultRouter{
		ser:    ser,
		routes: make(map[uint32]Route),
	}
}

func (r *defaultRouter) Register(op uint32, route Route) error {
	if op == 0 {
		return merr.WrapErrParameterInvalidMsg("router: op must not be 0")
	}
	if route.NewRequest == nil || route.Handler == nil {
		return merr.WrapErrParameterInvalidMsg("router: incomplete route for op=%d", op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[op]; exists {
		return merr.WrapErrRouteDuplicated(op)
	}
	r.routes[op] = route
	return nil
}

func (r *defaultRouter) lookup(op uint32) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[op]
	return route, ok
}

func (r *defaultRouter) Handle(sess session.Session, header *packet.MessageHeader, payload []byte) error {
	if sess == nil || header == nil {
		return merr.WrapErrParameterInvalidMsg("router: session or header is nil")
	}
	op := uint32(header.Op)

	route, ok := r.lookup(op)
	if !ok {
		return merr.WrapErrRouteNotFound(op)
	}

	start := time.Now()
	defer func() {
		metrics.NetworkDispatchLatency.WithLabelValues(metrics.OpLabel(op)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	// 1. 构造请求对象并反序列化。
	req := route.NewRequest()
	if req == nil {
		return merr.WrapErrParameterInvalidMsg("router: NewRequest returned nil for op=%d", op)
	}
	if len(payload) > 0 {
		if err := r.ser.Unmarshal(payload, req); err != nil {
			return errors.Wrapf(err, "router: unmarshal payload for op=%d", op)
		}
	}

	// 2. 调用业务 Handler。
	resp, err := route.Handler(sess, req)
	if err != nil {
		if route.RespOp != 0 {
			r.replyError(sess, header, route.RespOp, err)
		}
		return err
	}

	// 3. 根据路由规则决定是否自动发送响应。
	if route.RespOp == 0 || resp == nil {
		return nil
	}
	if err := sess.SendWithHeader(responseHeader(header, route.RespOp), resp); err != nil {
		return errors.Wrapf(err, "router: send response for op=%d", op)
	}
	return nil
}

// replyError 把 Handler 的错误以 ErrorBody 回送给对端，失败时只记录日志。
func (r *defaultRouter) replyError(sess session.Session, req *packet.MessageHeader, respOp uint32, cause error) {
	h := responseHeader(req, respOp)
	h.SetFlag(packet.FlagError)
	body := &packet.ErrorBody{
		Code:    wire.I32(merr.Code(cause)),
		Message: wire.Str(cause.Error()),
	}
	if err := sess.SendWithHeader(h, body); err != nil {
		log.Ctx(sess.Context()).Warn("router: reply error failed",
			log.FieldOp(respOp), zap.Error(err))
	}
}

func responseHeader(req *packet.MessageHeader, respOp uint32) *packet.MessageHeader {
	h := packet.NewHeader(respOp, uint64(req.Seq))
	h.SetFlag(packet.FlagResponse)
	return h
}
