package wire

import (
	"context"
	"fmt"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Len 给出定长数组的元素个数，由零大小的标记类型实现，例如 L3。
type Len interface {
	Len() int
}

// 常用长度标记，其余长度可按同样方式自定义。
type (
	L1  struct{}
	L2  struct{}
	L3  struct{}
	L4  struct{}
	L8  struct{}
	L16 struct{}
	L32 struct{}
	L64 struct{}
)

func (L1) Len() int  { return 1 }
func (L2) Len() int  { return 2 }
func (L3) Len() int  { return 3 }
func (L4) Len() int  { return 4 }
func (L8) Len() int  { return 8 }
func (L16) Len() int { return 16 }
func (L32) Len() int { return 32 }
func (L64) Len() int { return 64 }

// Array 是长度为 N 的定长序列，线上没有长度前缀。
// 长度属于类型本身，嵌套在 Option、Seq、元组或记录中时同样能正确解码。
type Array[T Encoder, N Len] []T

func arrayLen[N Len]() int {
	var n N
	return n.Len()
}

func (a Array[T, N]) Size() int {
	size := 0
	for i := range a {
		size += a[i].Size()
	}
	return size
}

// EncodeTo 要求 len(a) 恰好为 N，否则返回 ErrInvalidLength。
func (a Array[T, N]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	if n := arrayLen[N](); len(a) != n {
		return 0, merr.WrapErrInvalidLength(uint64(len(a)), fmt.Sprintf("array expects %d elements", n))
	}
	return encodeAll(ctx, cfg, w, a...)
}

func (a *Array[T, N]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	b := newArrayBuilder[T](arrayLen[N]())
	for b.len() < b.capacity() {
		var v T
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return err
		}
		b.push(v)
	}
	out, err := b.build()
	if err != nil {
		return err
	}
	*a = out
	return nil
}

// arrayBuilder 逐个收集元素，只有装满后才能得到结果。
type arrayBuilder[T any] struct {
	items []T
}

func newArrayBuilder[T any](n int) *arrayBuilder[T] {
	return &arrayBuilder[T]{items: make([]T, 0, n)}
}

func (b *arrayBuilder[T]) push(v T) {
	b.items = append(b.items, v)
}

func (b *arrayBuilder[T]) len() int {
	return len(b.items)
}

func (b *arrayBuilder[T]) capacity() int {
	return cap(b.items)
}

func (b *arrayBuilder[T]) build() ([]T, error) {
	if len(b.items) != cap(b.items) {
		return nil, merr.WrapErrPartiallyFilledArray(len(b.items), cap(b.items))
	}
	return b.items, nil
}
