package wire

import (
	"context"
)

// Tuple2..Tuple4 按声明顺序拼接各成员，没有前缀。

type Tuple2[A, B Encoder] struct {
	First  A
	Second B
}

func (t Tuple2[A, B]) Size() int {
	return t.First.Size() + t.Second.Size()
}

func (t Tuple2[A, B]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return EncodeFields(ctx, cfg, w, t.First, t.Second)
}

func (t *Tuple2[A, B]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	var out Tuple2[A, B]
	if err := decodeValue(ctx, cfg, r, &out.First); err != nil {
		return err
	}
	if err := decodeValue(ctx, cfg, r, &out.Second); err != nil {
		return err
	}
	*t = out
	return nil
}

type Tuple3[A, B, C Encoder] struct {
	First  A
	Second B
	Third  C
}

func (t Tuple3[A, B, C]) Size() int {
	return t.First.Size() + t.Second.Size() + t.Third.Size()
}

func (t Tuple3[A, B, C]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return EncodeFields(ctx, cfg, w, t.First, t.Second, t.Third)
}

func (t *Tuple3[A, B, C]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	var out Tuple3[A, B, C]
	if err := decodeValue(ctx, cfg, r, &out.First); err != nil {
		return err
	}
	if err := decodeValue(ctx, cfg, r, &out.Second); err != nil {
		return err
	}
	if err := decodeValue(ctx, cfg, r, &out.Third); err != nil {
		return err
	}
	*t = out
	return nil
}

type Tuple4[A, B, C, D Encoder] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

func (t Tuple4[A, B, C, D]) Size() int {
	return t.First.Size() + t.Second.Size() + t.Third.Size() + t.Fourth.Size()
}

func (t Tuple4[A, B, C, D]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return EncodeFields(ctx, cfg, w, t.First, t.Second, t.Third, t.Fourth)
}

func (t *Tuple4[A, B, C, D]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	var out Tuple4[A, B, C, D]
	if err := decodeValue(ctx, cfg, r, &out.First); err != nil {
		return err
	}
	if err := decodeValue(ctx, cfg, r, &out.Second); err != nil {
		return err
	}
	if err := decodeValue(ctx, cfg, r, &out.Third); err != nil {
		return err
	}
	if err := decodeValue(ctx, cfg, r, &out.Fourth); err != nil {
		return err
	}
	*t = out
	return nil
}
