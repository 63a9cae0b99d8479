// Package wire 实现一种紧凑的二进制对象编码。
//
// 每个可编码类型实现 Encoder，其指针类型实现 Decoder。
// 复合类型按字段声明顺序逐个编码，不携带字段名或类型信息，
// 只有变长容器带长度前缀，和类型只带一个 VarInt 标签。
//
// 编码结果的字节数始终等于 Size() 的返回值。
package wire

import (
	"context"
	"fmt"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Encoder 描述一个可以写入字节流的值。
type Encoder interface {
	// Size 返回编码后的字节数，不做任何 IO。
	Size() int
	// EncodeTo 把值写入 w，返回写入的字节数。
	EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error)
}

// Decoder 描述一个可以从字节流中还原的值，总是由指针类型实现。
// DecodeFrom 会完整覆盖接收者。
type Decoder interface {
	DecodeFrom(ctx context.Context, cfg Config, r Reader) error
}

// Codec 同时具备编码与解码能力。
type Codec interface {
	Encoder
	Decoder
}

// decodeValue 通过指针把 p 当作 Decoder 解码。
// 泛型容器的元素只约束为 Encoder，解码能力在这里断言。
func decodeValue[T any](ctx context.Context, cfg Config, r Reader, p *T) error {
	d, ok := any(p).(Decoder)
	if !ok {
		return merr.WrapErrNotDecodable(fmt.Sprintf("%T", p))
	}
	return d.DecodeFrom(ctx, cfg, r)
}

// encodeAll 依次编码 items，返回累计写入的字节数。
func encodeAll[T Encoder](ctx context.Context, cfg Config, w Writer, items ...T) (int, error) {
	total := 0
	for i := range items {
		n, err := items[i].EncodeTo(ctx, cfg, w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
