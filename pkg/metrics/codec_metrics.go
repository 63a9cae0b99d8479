package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const codecMetricSubsystem = "codec"

var (
	// CodecOperations 统计顶层 Encode/Decode 的调用次数。
	CodecOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: wirecodecNamespace,
		Subsystem: codecMetricSubsystem,
		Name:      "operations_total",
		Help:      "顶层编解码调用次数",
	}, []string{opLabelName, endianLabelName, resultLabelName})

	// CodecErrors 按错误类别统计编解码失败次数。
	CodecErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: wirecodecNamespace,
		Subsystem: codecMetricSubsystem,
		Name:      "errors_total",
		Help:      "编解码失败次数，按错误类别区分",
	}, []string{opLabelName, kindLabelName})

	CodecBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: wirecodecNamespace,
		Subsystem: codecMetricSubsystem,
		Name:      "bytes",
		Help:      "单次编解码涉及的字节数",
		Buckets:   sizeBuckets,
	}, []string{opLabelName})
)

func registerCodecMetrics(r prometheus.Registerer) {
	r.MustRegister(CodecOperations)
	r.MustRegister(CodecErrors)
	r.MustRegister(CodecBytes)
}

// ObserveCodec 记录一次顶层编解码的结果。
func ObserveCodec(op, endian string, size int, kind string) {
	if kind != "" {
		CodecOperations.WithLabelValues(op, endian, FailLabel).Inc()
		CodecErrors.WithLabelValues(op, kind).Inc()
		return
	}
	CodecOperations.WithLabelValues(op, endian, SuccessLabel).Inc()
	CodecBytes.WithLabelValues(op).Observe(float64(size))
}
