package wire

import (
	"context"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// 以下函数供记录类型与和类型（enum）的手写或生成代码使用。
// 记录按字段声明顺序拼接；和类型先写 VarInt 标签，再写所选变体的字段。

// SizeOf 返回 fields 的编码总长度。
func SizeOf(fields ...Encoder) int {
	size := 0
	for _, f := range fields {
		size += f.Size()
	}
	return size
}

// EncodeFields 依次编码 fields。
func EncodeFields(ctx context.Context, cfg Config, w Writer, fields ...Encoder) (int, error) {
	return encodeAll(ctx, cfg, w, fields...)
}

// DecodeFields 依次解码 fields，通常传入各字段的地址。
func DecodeFields(ctx context.Context, cfg Config, r Reader, fields ...Decoder) error {
	for _, f := range fields {
		if err := f.DecodeFrom(ctx, cfg, r); err != nil {
			return err
		}
	}
	return nil
}

// TagSize 返回变体标签占用的字节数。
func TagSize(tag uint32) int {
	return VarIntFromUint(tag).Size()
}

func EncodeTag(ctx context.Context, cfg Config, w Writer, tag uint32) (int, error) {
	return VarIntFromUint(tag).EncodeTo(ctx, cfg, w)
}

// DecodeTag 读取变体标签，标签不小于 variants 时返回携带原始标签的 ErrInvalidEnumVariant。
func DecodeTag(ctx context.Context, cfg Config, r Reader, variants uint32) (uint32, error) {
	var v VarInt
	if err := v.DecodeFrom(ctx, cfg, r); err != nil {
		return 0, err
	}
	raw, ok := v.U128().Uint64()
	if !ok {
		// 超出 64 位的标签只保留低位用于报错。
		return 0, merr.WrapErrInvalidEnumVariant(raw, "tag exceeds 64 bits")
	}
	if raw >= uint64(variants) {
		return 0, merr.WrapErrInvalidEnumVariant(raw)
	}
	return uint32(raw), nil
}
