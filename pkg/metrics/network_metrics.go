package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const networkMetricSubsystem = "network"

var (
	NetworkSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: wirecodecNamespace,
		Subsystem: networkMetricSubsystem,
		Name:      "sessions",
		Help:      "当前存活的会话数量",
	})

	NetworkFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: wirecodecNamespace,
		Subsystem: networkMetricSubsystem,
		Name:      "frames_total",
		Help:      "收发的帧数量",
	}, []string{directionLabelName, serializerLabel})

	NetworkFrameBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: wirecodecNamespace,
		Subsystem: networkMetricSubsystem,
		Name:      "frame_bytes",
		Help:      "单帧负载大小",
		Buckets:   sizeBuckets,
	}, []string{directionLabelName})

	// NetworkErrors 按处理阶段统计网络层错误。
	NetworkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: wirecodecNamespace,
		Subsystem: networkMetricSubsystem,
		Name:      "errors_total",
		Help:      "网络层错误次数，按阶段与错误类别区分",
	}, []string{stageLabelName, kindLabelName})

	NetworkDispatchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: wirecodecNamespace,
		Subsystem: networkMetricSubsystem,
		Name:      "dispatch_latency",
		Help:      "消息处理耗时，单位毫秒",
		Buckets:   buckets,
	}, []string{opLabelName})

	NetworkReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: wirecodecNamespace,
		Subsystem: networkMetricSubsystem,
		Name:      "reconnects_total",
		Help:      "客户端重连次数",
	}, []string{resultLabelName})
)

func registerNetworkMetrics(r prometheus.Registerer) {
	r.MustRegister(NetworkSessions)
	r.MustRegister(NetworkFrames)
	r.MustRegister(NetworkFrameBytes)
	r.MustRegister(NetworkErrors)
	r.MustRegister(NetworkDispatchLatency)
	r.MustRegister(NetworkReconnects)
}

// OpLabel 把协议号格式化为指标标签值。
func OpLabel(op uint32) string {
	return strconv.FormatUint(uint64(op), 10)
}
