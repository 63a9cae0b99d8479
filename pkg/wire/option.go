package wire

import (
	"context"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

const (
	tagNone uint8 = 0
	tagSome uint8 = 1

	tagOk  uint8 = 0
	tagErr uint8 = 1
)

// Option 是可缺省的值：1 字节标签（0 缺省，1 存在），存在时紧跟负载。
type Option[T Encoder] struct {
	Value T
	Valid bool
}

func Some[T Encoder](v T) Option[T] {
	return Option[T]{Value: v, Valid: true}
}

func None[T Encoder]() Option[T] {
	return Option[T]{}
}

func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

func (o Option[T]) Size() int {
	if !o.Valid {
		return 1
	}
	return 1 + o.Value.Size()
}

func (o Option[T]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	if !o.Valid {
		return writeU8(ctx, w, tagNone)
	}
	n, err := writeU8(ctx, w, tagSome)
	if err != nil {
		return n, err
	}
	m, err := o.Value.EncodeTo(ctx, cfg, w)
	return n + m, err
}

func (o *Option[T]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	tag, err := readU8(ctx, r)
	if err != nil {
		return err
	}
	switch tag {
	case tagNone:
		*o = Option[T]{}
		return nil
	case tagSome:
		var v T
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return err
		}
		*o = Option[T]{Value: v, Valid: true}
		return nil
	default:
		return merr.WrapErrInvalidEnumVariant(uint64(tag), "option")
	}
}

// Result 携带成功值或错误值之一：1 字节标签（0 为 Ok，1 为 Err），紧跟对应负载。
type Result[T, E Encoder] struct {
	Ok    T
	Err   E
	IsErr bool
}

func OkResult[T, E Encoder](v T) Result[T, E] {
	return Result[T, E]{Ok: v}
}

func ErrResult[T, E Encoder](e E) Result[T, E] {
	return Result[T, E]{Err: e, IsErr: true}
}

func (res Result[T, E]) Size() int {
	if res.IsErr {
		return 1 + res.Err.Size()
	}
	return 1 + res.Ok.Size()
}

func (res Result[T, E]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	var payload Encoder = res.Ok
	tag := tagOk
	if res.IsErr {
		payload, tag = res.Err, tagErr
	}
	n, err := writeU8(ctx, w, tag)
	if err != nil {
		return n, err
	}
	m, err := payload.EncodeTo(ctx, cfg, w)
	return n + m, err
}

func (res *Result[T, E]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	tag, err := readU8(ctx, r)
	if err != nil {
		return err
	}
	switch tag {
	case tagOk:
		var v T
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return err
		}
		*res = Result[T, E]{Ok: v}
		return nil
	case tagErr:
		var e E
		if err := decodeValue(ctx, cfg, r, &e); err != nil {
			return err
		}
		*res = Result[T, E]{Err: e, IsErr: true}
		return nil
	default:
		return merr.WrapErrInvalidEnumVariant(uint64(tag), "result")
	}
}
