// Package packet 定义网络层的报文头与信封，二者本身都是 wire 类型。
package packet

import (
	"context"
	"time"

	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// 报文头 Flags 位。
const (
	// FlagResponse 表示该报文是对请求的响应，Seq 与请求一致。
	FlagResponse uint64 = 1 << iota
	// FlagError 表示 Payload 为 ErrorBody 而不是业务响应。
	FlagError
)

// MessageHeader 为每条消息携带的元信息。
type MessageHeader struct {
	Op        wire.U32
	Seq       wire.U64
	Flags     wire.U64
	Timestamp wire.I64
}

// NewHeader 以当前时间构造报文头。
func NewHeader(op uint32, seq uint64) *MessageHeader {
	return &MessageHeader{
		Op:        wire.U32(op),
		Seq:       wire.U64(seq),
		Timestamp: wire.I64(time.Now().UnixNano()),
	}
}

func (h *MessageHeader) HasFlag(flag uint64) bool {
	return uint64(h.Flags)&flag != 0
}

func (h *MessageHeader) SetFlag(flag uint64) {
	h.Flags = wire.U64(uint64(h.Flags) | flag)
}

func (h MessageHeader) Size() int {
	return wire.SizeOf(h.Op, h.Seq, h.Flags, h.Timestamp)
}

func (h MessageHeader) EncodeTo(ctx context.Context, cfg wire.Config, w wire.Writer) (int, error) {
	return wire.EncodeFields(ctx, cfg, w, h.Op, h.Seq, h.Flags, h.Timestamp)
}

func (h *MessageHeader) DecodeFrom(ctx context.Context, cfg wire.Config, r wire.Reader) error {
	return wire.DecodeFields(ctx, cfg, r, &h.Op, &h.Seq, &h.Flags, &h.Timestamp)
}

// AAD 返回报文头的固定字节表示，用作负载加密的关联数据。
func (h MessageHeader) AAD() []byte {
	data, _ := wire.Encode(context.Background(), h)
	return data
}

// Envelope 为一帧的完整内容：报文头加序列化后的业务负载。
type Envelope struct {
	Header  MessageHeader
	Payload wire.Bytes
}

func (e Envelope) Size() int {
	return wire.SizeOf(e.Header, e.Payload)
}

func (e Envelope) EncodeTo(ctx context.Context, cfg wire.Config, w wire.Writer) (int, error) {
	return wire.EncodeFields(ctx, cfg, w, e.Header, e.Payload)
}

func (e *Envelope) DecodeFrom(ctx context.Context, cfg wire.Config, r wire.Reader) error {
	return wire.DecodeFields(ctx, cfg, r, &e.Header, &e.Payload)
}

// ErrorBody 为 FlagError 报文的负载，携带 merr 错误码与描述。
type ErrorBody struct {
	Code    wire.I32
	Message wire.Str
}

func (b ErrorBody) Size() int {
	return wire.SizeOf(b.Code, b.Message)
}

func (b ErrorBody) EncodeTo(ctx context.Context, cfg wire.Config, w wire.Writer) (int, error) {
	return wire.EncodeFields(ctx, cfg, w, b.Code, b.Message)
}

func (b *ErrorBody) DecodeFrom(ctx context.Context, cfg wire.Config, r wire.Reader) error {
	return wire.DecodeFields(ctx, cfg, r, &b.Code, &b.Message)
}

// Packet 为已解码但尚未交由业务处理的消息。
type Packet struct {
	Header  *MessageHeader
	Payload []byte
}
