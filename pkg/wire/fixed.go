package wire

import (
	"context"
	"math"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// 定长数值类型。宽度与 Go 原生类型一致，字节序由 Config 决定。
type (
	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64
	I8  int8
	I16 int16
	I32 int32
	I64 int64
	F32 float32
	F64 float64
)

func writeRaw(ctx context.Context, w Writer, b []byte) (int, error) {
	if err := w.WriteAll(ctx, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func writeU8(ctx context.Context, w Writer, v uint8) (int, error) {
	b := [1]byte{v}
	return writeRaw(ctx, w, b[:])
}

func writeU16(ctx context.Context, cfg Config, w Writer, v uint16) (int, error) {
	var b [2]byte
	cfg.order().PutUint16(b[:], v)
	return writeRaw(ctx, w, b[:])
}

func writeU32(ctx context.Context, cfg Config, w Writer, v uint32) (int, error) {
	var b [4]byte
	cfg.order().PutUint32(b[:], v)
	return writeRaw(ctx, w, b[:])
}

func writeU64(ctx context.Context, cfg Config, w Writer, v uint64) (int, error) {
	var b [8]byte
	cfg.order().PutUint64(b[:], v)
	return writeRaw(ctx, w, b[:])
}

func readU8(ctx context.Context, r Reader) (uint8, error) {
	var b [1]byte
	if err := r.ReadFull(ctx, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readU16(ctx context.Context, cfg Config, r Reader) (uint16, error) {
	var b [2]byte
	if err := r.ReadFull(ctx, b[:]); err != nil {
		return 0, err
	}
	return cfg.order().Uint16(b[:]), nil
}

func readU32(ctx context.Context, cfg Config, r Reader) (uint32, error) {
	var b [4]byte
	if err := r.ReadFull(ctx, b[:]); err != nil {
		return 0, err
	}
	return cfg.order().Uint32(b[:]), nil
}

func readU64(ctx context.Context, cfg Config, r Reader) (uint64, error) {
	var b [8]byte
	if err := r.ReadFull(ctx, b[:]); err != nil {
		return 0, err
	}
	return cfg.order().Uint64(b[:]), nil
}

func (U8) Size() int { return 1 }

func (v U8) EncodeTo(ctx context.Context, _ Config, w Writer) (int, error) {
	return writeU8(ctx, w, uint8(v))
}

func (v *U8) DecodeFrom(ctx context.Context, _ Config, r Reader) error {
	x, err := readU8(ctx, r)
	if err != nil {
		return err
	}
	*v = U8(x)
	return nil
}

func (U16) Size() int { return 2 }

func (v U16) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU16(ctx, cfg, w, uint16(v))
}

func (v *U16) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU16(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = U16(x)
	return nil
}

func (U32) Size() int { return 4 }

func (v U32) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU32(ctx, cfg, w, uint32(v))
}

func (v *U32) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU32(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = U32(x)
	return nil
}

func (U64) Size() int { return 8 }

func (v U64) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU64(ctx, cfg, w, uint64(v))
}

func (v *U64) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU64(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = U64(x)
	return nil
}

func (I8) Size() int { return 1 }

func (v I8) EncodeTo(ctx context.Context, _ Config, w Writer) (int, error) {
	return writeU8(ctx, w, uint8(v))
}

func (v *I8) DecodeFrom(ctx context.Context, _ Config, r Reader) error {
	x, err := readU8(ctx, r)
	if err != nil {
		return err
	}
	*v = I8(int8(x))
	return nil
}

func (I16) Size() int { return 2 }

func (v I16) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU16(ctx, cfg, w, uint16(v))
}

func (v *I16) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU16(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = I16(int16(x))
	return nil
}

func (I32) Size() int { return 4 }

func (v I32) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU32(ctx, cfg, w, uint32(v))
}

func (v *I32) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU32(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = I32(int32(x))
	return nil
}

func (I64) Size() int { return 8 }

func (v I64) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU64(ctx, cfg, w, uint64(v))
}

func (v *I64) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU64(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = I64(int64(x))
	return nil
}

func (F32) Size() int { return 4 }

func (v F32) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU32(ctx, cfg, w, math.Float32bits(float32(v)))
}

func (v *F32) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU32(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = F32(math.Float32frombits(x))
	return nil
}

func (F64) Size() int { return 8 }

func (v F64) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU64(ctx, cfg, w, math.Float64bits(float64(v)))
}

func (v *F64) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU64(ctx, cfg, r)
	if err != nil {
		return err
	}
	*v = F64(math.Float64frombits(x))
	return nil
}

// Uint 是平台宽度的无符号整数，线上固定占 8 字节。
type Uint uint

func (Uint) Size() int { return 8 }

func (v Uint) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU64(ctx, cfg, w, uint64(v))
}

func (v *Uint) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU64(ctx, cfg, r)
	if err != nil {
		return err
	}
	if uint64(uint(x)) != x {
		return merr.WrapErrIntConversion(x, "uint")
	}
	*v = Uint(x)
	return nil
}

// Int 是平台宽度的有符号整数，线上固定占 8 字节。
type Int int

func (Int) Size() int { return 8 }

func (v Int) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return writeU64(ctx, cfg, w, uint64(int64(v)))
}

func (v *Int) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	x, err := readU64(ctx, cfg, r)
	if err != nil {
		return err
	}
	i := int64(x)
	if int64(int(i)) != i {
		return merr.WrapErrIntConversion(i, "int")
	}
	*v = Int(i)
	return nil
}
