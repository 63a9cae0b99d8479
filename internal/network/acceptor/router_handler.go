package acceptor

import (
	"context"
	"net"

	"go.uber.org/zap"

	network "github.com/lk2023060901/wirecodec/internal/network"
	"github.com/lk2023060901/wirecodec/internal/network/codec"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/router"
	"github.com/lk2023060901/wirecodec/internal/network/session"
	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// RouterHandler 是基于 Router 的默认 Handler：为每个连接创建 BaseSession，并把消息交给 Router 分发。
type RouterHandler struct {
	Router  router.Router
	Session session.Config

	// OnClosed 可选，会话结束时回调。
	OnClosed func(sess session.Session, err error)
}

var _ Handler = (*RouterHandler)(nil)

// NewRouterHandler 创建一个 RouterHandler。
func NewRouterHandler(r router.Router, cfg session.Config) *RouterHandler {
	return &RouterHandler{Router: r, Session: cfg}
}

func (h *RouterHandler) OnAccept(ctx context.Context, conn net.Conn, id uint64, c codec.Codec) (session.Session, error) {
	sess := session.NewBaseSession(ctx, id, conn, c, h.Session)
	sess.Logger().Info("session accepted")
	return sess, nil
}

func (h *RouterHandler) OnMessage(sess session.Session, header *packet.MessageHeader, payload []byte) {
	if err := h.Router.Handle(sess, header, payload); err != nil {
		h.OnError(sess, network.StageDispatch, network.ObserveError(network.StageDispatch, err))
	}
}

func (h *RouterHandler) OnSessionClosed(sess session.Session, err error) {
	log.Ctx(sess.Context()).Info("session closed", zap.Error(err))
	if h.OnClosed != nil {
		h.OnClosed(sess, err)
	}
}

func (h *RouterHandler) OnError(sess session.Session, stage network.Stage, err error) {
	logger := log.With()
	if sess != nil {
		logger = log.Ctx(sess.Context())
	}
	logger.RatedWarn(1, "network error",
		log.FieldStage(stage.String()),
		zap.String("kind", merr.Kind(err)),
		zap.Error(err))
}

// OnTimeout 默认在读超时时断开会话。
func (h *RouterHandler) OnTimeout(sess session.Session) error {
	if sess == nil {
		return nil
	}
	return merr.WrapErrSessionClosed(sess.ID(), "read timeout")
}
