package wire

import (
	"context"
	"unicode/utf8"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Bool 占 1 字节。解码时任何非零值都视为 true。
type Bool bool

func (Bool) Size() int { return 1 }

func (v Bool) EncodeTo(ctx context.Context, _ Config, w Writer) (int, error) {
	if v {
		return writeU8(ctx, w, 1)
	}
	return writeU8(ctx, w, 0)
}

func (v *Bool) DecodeFrom(ctx context.Context, _ Config, r Reader) error {
	x, err := readU8(ctx, r)
	if err != nil {
		return err
	}
	*v = x != 0
	return nil
}

// Char 是一个 Unicode 码点，按 u32 编码。
type Char rune

func (Char) Size() int { return 4 }

func (v Char) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU32(ctx, cfg, w, uint32(v))
}

func (v *Char) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU32(ctx, cfg, r)
	if err != nil {
		return err
	}
	if x > utf8.MaxRune || !utf8.ValidRune(rune(x)) {
		return merr.WrapErrInvalidChar(x)
	}
	*v = Char(x)
	return nil
}

// Unit 不占任何字节，对应无字段的记录。
type Unit struct{}

func (Unit) Size() int { return 0 }

func (Unit) EncodeTo(context.Context, Config, Writer) (int, error) { return 0, nil }

func (*Unit) DecodeFrom(context.Context, Config, Reader) error { return nil }
