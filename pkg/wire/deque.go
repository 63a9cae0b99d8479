package wire

import (
	"context"

	"github.com/lk2023060901/wirecodec/pkg/buffer/ring"
)

// Deque 是双端队列，线格式与 Seq 相同：长度前缀后按队首到队尾的顺序排列元素。
type Deque[T Encoder] struct {
	ring.Ring[T]
}

func NewDeque[T Encoder](items ...T) Deque[T] {
	var d Deque[T]
	for _, v := range items {
		d.PushBack(v)
	}
	return d
}

func (d Deque[T]) Size() int {
	size := lenPrefixSize
	d.Range(func(_ int, v T) bool {
		size += v.Size()
		return true
	})
	return size
}

func (d Deque[T]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	n, err := writeLen(ctx, cfg, w, d.Len())
	if err != nil {
		return n, err
	}
	d.Range(func(_ int, v T) bool {
		var m int
		m, err = v.EncodeTo(ctx, cfg, w)
		n += m
		return err == nil
	})
	return n, err
}

func (d *Deque[T]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	n, err := readLen(ctx, cfg, r)
	if err != nil {
		return err
	}
	out := ring.New[T](min(n, maxPreallocElems))
	for i := 0; i < n; i++ {
		var v T
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return err
		}
		out.PushBack(v)
	}
	d.Ring = *out
	return nil
}
