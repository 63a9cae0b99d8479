package wire

import (
	"context"
	"fmt"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Ptr 透明地编码指针指向的值，线上没有额外字节。
//
// nil 不是受支持的取值：线上无法区分 nil 与零值，nil 按 T 的零值编码，
// 解码总是得到指向新值的非 nil 指针。需要表达“可能缺失”时使用 Option[T]。
type Ptr[T Encoder] struct {
	P *T
}

func NewPtr[T Encoder](v T) Ptr[T] {
	return Ptr[T]{P: &v}
}

func (p Ptr[T]) elem() T {
	if p.P == nil {
		var zero T
		return zero
	}
	return *p.P
}

func (p Ptr[T]) Size() int {
	return p.elem().Size()
}

func (p Ptr[T]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return p.elem().EncodeTo(ctx, cfg, w)
}

func (p *Ptr[T]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	v := new(T)
	if err := decodeValue(ctx, cfg, r, v); err != nil {
		return err
	}
	p.P = v
	return nil
}

// NonZero 包装一个不允许为零的值，解码到零值时返回 ErrNonZero。
type NonZero[T Key] struct {
	v T
}

// NewNonZero 在 v 为零值时返回 ErrNonZero。
func NewNonZero[T Key](v T) (NonZero[T], error) {
	var zero T
	if v == zero {
		return NonZero[T]{}, merr.WrapErrNonZero(fmt.Sprintf("%T", v))
	}
	return NonZero[T]{v: v}, nil
}

func (n NonZero[T]) Get() T {
	return n.v
}

func (n NonZero[T]) Size() int {
	return n.v.Size()
}

func (n NonZero[T]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return n.v.EncodeTo(ctx, cfg, w)
}

func (n *NonZero[T]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	var v T
	if err := decodeValue(ctx, cfg, r, &v); err != nil {
		return err
	}
	checked, err := NewNonZero(v)
	if err != nil {
		return err
	}
	*n = checked
	return nil
}
