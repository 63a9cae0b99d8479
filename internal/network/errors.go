package network

import (
	"context"
	"io"
	"net"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/wirecodec/pkg/metrics"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Stage 表示网络收发链路中的处理阶段。
//
// 主要用于在回调中标记错误发生的位置，便于监控与排查。
type Stage string

const (
	StageHandshake Stage = "handshake"
	StageRecvRaw   Stage = "recv_raw" // 读取底层连接
	StageDecode    Stage = "decode"   // 帧 -> Envelope -> 业务对象
	StageDispatch  Stage = "dispatch" // Envelope -> 路由处理
	StageEncode    Stage = "encode"   // 业务对象 -> 帧
	StageSend      Stage = "send"
)

func (s Stage) String() string { return string(s) }

// ObserveError 记录一次网络层错误，返回原错误便于链式使用。
func ObserveError(stage Stage, err error) error {
	if err != nil {
		metrics.NetworkErrors.WithLabelValues(stage.String(), merr.Kind(err)).Inc()
	}
	return err
}

// IsClosed 判断错误是否表示连接已正常关闭（对端关闭、本端关闭或上下文取消）。
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.IsAny(err, io.EOF, net.ErrClosed, io.ErrClosedPipe, context.Canceled) ||
		errors.Is(err, merr.ErrSessionClosed)
}
