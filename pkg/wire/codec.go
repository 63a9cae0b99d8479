package wire

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/metrics"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Encode 把 v 编码为新分配的字节切片，容量按 v.Size() 预分配。
//
// 写入内存不会产生 IO 错误。ctx 被取消或超时、以及定长数组长度不符时返回错误，
// 其余错误都说明某个类型的实现有缺陷，此时直接 panic。
func (c Config) Encode(ctx context.Context, v Encoder) ([]byte, error) {
	w := NewBytesWriter(v.Size())
	n, err := v.EncodeTo(ctx, c, w)
	if err != nil {
		if merr.IsCanceledOrTimeout(err) || errors.Is(err, merr.ErrInvalidLength) {
			metrics.ObserveCodec(metrics.EncodeLabel, c.Endian.String(), n, merr.Kind(err))
			return nil, err
		}
		panic(err)
	}
	metrics.ObserveCodec(metrics.EncodeLabel, c.Endian.String(), n, "")
	return w.Bytes(), nil
}

// EncodeTo 把 v 写入 w，返回写入的字节数。
func (c Config) EncodeTo(ctx context.Context, v Encoder, w io.Writer) (int, error) {
	n, err := v.EncodeTo(ctx, c, NewWriter(w))
	metrics.ObserveCodec(metrics.EncodeLabel, c.Endian.String(), n, merr.Kind(err))
	return n, err
}

// Decode 从 data 解码到 v，v 必须是指针。
func (c Config) Decode(ctx context.Context, data []byte, v Decoder) error {
	err := v.DecodeFrom(ctx, c, NewBytesReader(data))
	c.observeDecode(ctx, v, len(data), err)
	return err
}

// DecodeFrom 从 r 解码到 v。失败时 v 的内容未定义。
func (c Config) DecodeFrom(ctx context.Context, r io.Reader, v Decoder) error {
	err := v.DecodeFrom(ctx, c, NewReader(r))
	size := 0
	if err == nil {
		if e, ok := v.(Encoder); ok {
			size = e.Size()
		}
	}
	c.observeDecode(ctx, v, size, err)
	return err
}

func (c Config) observeDecode(ctx context.Context, v Decoder, size int, err error) {
	metrics.ObserveCodec(metrics.DecodeLabel, c.Endian.String(), size, merr.Kind(err))
	if err != nil && !merr.IsCanceledOrTimeout(err) {
		log.Ctx(ctx).RatedDebug(1, "decode failed",
			log.FieldEndian(c.Endian),
			log.FieldType(fmt.Sprintf("%T", v)),
			zap.Error(err))
	}
}

// Encode 使用 DefaultConfig 编码。
func Encode(ctx context.Context, v Encoder) ([]byte, error) {
	return DefaultConfig().Encode(ctx, v)
}

// EncodeTo 使用 DefaultConfig 编码到 w。
func EncodeTo(ctx context.Context, v Encoder, w io.Writer) (int, error) {
	return DefaultConfig().EncodeTo(ctx, v, w)
}

// Decode 使用 DefaultConfig 从 data 解码。
func Decode(ctx context.Context, data []byte, v Decoder) error {
	return DefaultConfig().Decode(ctx, data, v)
}

// DecodeFrom 使用 DefaultConfig 从 r 解码。
func DecodeFrom(ctx context.Context, r io.Reader, v Decoder) error {
	return DefaultConfig().DecodeFrom(ctx, r, v)
}
