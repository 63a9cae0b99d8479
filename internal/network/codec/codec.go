package codec

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lk2023060901/wirecodec/internal/network/crypto"
	"github.com/lk2023060901/wirecodec/internal/network/framer"
	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/internal/network/serializer"
	"github.com/lk2023060901/wirecodec/pkg/metrics"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Codec 抽象了“从业务对象到网络帧，以及从网络帧回到业务对象”的完整编解码流程。
//
// Pipeline（写出 Encode）：
//
//	msg --> serializer --> encryptor --> Envelope{Header+Payload} --> framer.WriteFrame
//
// Pipeline（读入 Decode）：
//
//	framer.ReadFrame --> Envelope{Header+Payload} --> encryptor --> serializer --> msg
type Codec interface {
	// Encode 将业务对象编码并写入到底层流。
	//
	//   - header：由调用方构造的报文头，不能为 nil；
	//   - msg   ：待编码的业务对象，由 serializer 负责实际序列化。
	Encode(ctx context.Context, w io.Writer, header *packet.MessageHeader, msg any) error

	// Decode 从底层流中读取一帧报文，并解码到 msg 中。
	//
	//   - msg 为接收解码结果的目标对象（通常为指针）；若为 nil，则仅解析并返回 Header。
	Decode(ctx context.Context, r io.Reader, msg any) (*packet.MessageHeader, error)

	// DecodeRaw 从底层流中读取一帧报文，返回消息头和尚未反序列化的业务字节。
	DecodeRaw(ctx context.Context, r io.Reader) (*packet.MessageHeader, []byte, error)

	// Serializer 返回当前使用的序列化器，供上层对 DecodeRaw 的结果做反序列化。
	Serializer() serializer.Serializer
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Framer     framer.Framer
	Serializer serializer.Serializer
	// Encryptor 允许为 nil，此时负载不加密。
	Encryptor crypto.Encryptor
	// Tracer 允许为 nil，此时使用全局 TracerProvider。
	Tracer trace.Tracer
}

type codec struct {
	framer     framer.Framer
	serializer serializer.Serializer
	encryptor  crypto.Encryptor
	tracer     trace.Tracer
}

var _ Codec = (*codec)(nil)

const tracerName = "github.com/lk2023060901/wirecodec/internal/network/codec"

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) (Codec, error) {
	if opts.Framer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: framer is nil")
	}
	if opts.Serializer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: serializer is nil")
	}

	c := &codec{
		framer:     opts.Framer,
		serializer: opts.Serializer,
		encryptor:  opts.Encryptor,
		tracer:     opts.Tracer,
	}
	if c.encryptor == nil {
		c.encryptor = crypto.NopEncryptor{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c, nil
}

func (c *codec) Serializer() serializer.Serializer {
	return c.serializer
}

// Encode 实现 Codec.Encode。
func (c *codec) Encode(ctx context.Context, w io.Writer, header *packet.MessageHeader, msg any) (err error) {
	if w == nil {
		return merr.WrapErrParameterInvalidMsg("codec: writer is nil")
	}
	if msg == nil {
		return merr.WrapErrParameterInvalidMsg("codec: msg is nil")
	}
	if header == nil {
		return merr.WrapErrParameterInvalidMsg("codec: header is nil")
	}

	ctx, span := c.tracer.Start(ctx, "codec.Encode", trace.WithAttributes(
		attribute.Int64("op", int64(header.Op)),
		attribute.String("serializer", c.serializer.Name()),
		attribute.String("encryptor", c.encryptor.Name()),
	))
	defer func() { endSpan(span, err) }()

	// 第一步：业务对象序列化。
	body, err := c.serializer.Marshal(msg)
	if err != nil {
		return err
	}
	body, err = c.encryptor.Encrypt(body, header.AAD())
	if err != nil {
		return err
	}

	env := &packet.Envelope{
		Header:  *header,
		Payload: body,
	}

	if err := c.framer.WriteFrame(ctx, w, env); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("payload.size", len(body)))
	metrics.NetworkFrames.WithLabelValues(metrics.OutboundLabel, c.serializer.Name()).Inc()
	metrics.NetworkFrameBytes.WithLabelValues(metrics.OutboundLabel).Observe(float64(len(body)))
	return nil
}

// DecodeRaw 实现 Codec.DecodeRaw。
func (c *codec) DecodeRaw(ctx context.Context, r io.Reader) (*packet.MessageHeader, []byte, error) {
	if r == nil {
		return nil, nil, merr.WrapErrParameterInvalidMsg("codec: reader is nil")
	}

	env, err := c.framer.ReadFrame(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	payload, err := c.encryptor.Decrypt(env.Payload, env.Header.AAD())
	if err != nil {
		return nil, nil, err
	}

	metrics.NetworkFrames.WithLabelValues(metrics.InboundLabel, c.serializer.Name()).Inc()
	metrics.NetworkFrameBytes.WithLabelValues(metrics.InboundLabel).Observe(float64(len(env.Payload)))
	return &env.Header, payload, nil
}

// Decode 实现 Codec.Decode。
func (c *codec) Decode(ctx context.Context, r io.Reader, msg any) (*packet.MessageHeader, error) {
	header, data, err := c.DecodeRaw(ctx, r)
	if err != nil {
		return nil, err
	}

	// 读帧会阻塞等待对端，span 只覆盖反序列化部分。
	_, span := c.tracer.Start(ctx, "codec.Decode", trace.WithAttributes(
		attribute.Int64("op", int64(header.Op)),
		attribute.Int("payload.size", len(data)),
	))
	if msg != nil {
		err = c.serializer.Unmarshal(data, msg)
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return header, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, merr.Kind(err))
	}
	span.End()
}
