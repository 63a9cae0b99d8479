package wire

import (
	"context"
	"math/big"
	"math/bits"
)

// U128 是 128 位无符号整数，Hi 为高 64 位。
type U128 struct {
	Hi, Lo uint64
}

// U128From64 把 uint64 扩展为 U128。
func U128From64(v uint64) U128 {
	return U128{Lo: v}
}

func (u U128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Uint64 返回低 64 位，ok 表示高位是否全为零。
func (u U128) Uint64() (v uint64, ok bool) {
	return u.Lo, u.Hi == 0
}

func (u U128) And(o U128) U128 { return U128{Hi: u.Hi & o.Hi, Lo: u.Lo & o.Lo} }

func (u U128) Or(o U128) U128 { return U128{Hi: u.Hi | o.Hi, Lo: u.Lo | o.Lo} }

func (u U128) Xor(o U128) U128 { return U128{Hi: u.Hi ^ o.Hi, Lo: u.Lo ^ o.Lo} }

// Lsh 左移 n 位，移出的高位被丢弃。
func (u U128) Lsh(n uint) U128 {
	switch {
	case n >= 128:
		return U128{}
	case n >= 64:
		return U128{Hi: u.Lo << (n - 64)}
	case n == 0:
		return u
	default:
		return U128{Hi: u.Hi<<n | u.Lo>>(64-n), Lo: u.Lo << n}
	}
}

// Rsh 逻辑右移 n 位。
func (u U128) Rsh(n uint) U128 {
	switch {
	case n >= 128:
		return U128{}
	case n >= 64:
		return U128{Lo: u.Hi >> (n - 64)}
	case n == 0:
		return u
	default:
		return U128{Hi: u.Hi >> n, Lo: u.Lo>>n | u.Hi<<(64-n)}
	}
}

// BitLen 返回表示 u 所需的最少位数，零为 0。
func (u U128) BitLen() int {
	if u.Hi != 0 {
		return 64 + bits.Len64(u.Hi)
	}
	return bits.Len64(u.Lo)
}

func (u U128) Cmp(o U128) int {
	switch {
	case u.Hi < o.Hi:
		return -1
	case u.Hi > o.Hi:
		return 1
	case u.Lo < o.Lo:
		return -1
	case u.Lo > o.Lo:
		return 1
	default:
		return 0
	}
}

// Big 转换为 big.Int，便于打印与测试。
func (u U128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

func (u U128) String() string {
	return u.Big().String()
}

func (U128) Size() int { return 16 }

func (u U128) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	var b [16]byte
	if cfg.Endian == BigEndian {
		cfg.order().PutUint64(b[:8], u.Hi)
		cfg.order().PutUint64(b[8:], u.Lo)
	} else {
		cfg.order().PutUint64(b[:8], u.Lo)
		cfg.order().PutUint64(b[8:], u.Hi)
	}
	return writeRaw(ctx, w, b[:])
}

func (u *U128) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	var b [16]byte
	if err := r.ReadFull(ctx, b[:]); err != nil {
		return err
	}
	if cfg.Endian == BigEndian {
		u.Hi = cfg.order().Uint64(b[:8])
		u.Lo = cfg.order().Uint64(b[8:])
	} else {
		u.Lo = cfg.order().Uint64(b[:8])
		u.Hi = cfg.order().Uint64(b[8:])
	}
	return nil
}

// I128 是 128 位有符号整数，以二进制补码存放在两个 64 位字中。
type I128 struct {
	Hi, Lo uint64
}

// I128From64 把 int64 符号扩展为 I128。
func I128From64(v int64) I128 {
	return I128{Hi: uint64(v >> 63), Lo: uint64(v)}
}

// Int64 返回对应的 int64，ok 表示值是否在 int64 范围内。
func (i I128) Int64() (v int64, ok bool) {
	return int64(i.Lo), i.Hi == uint64(int64(i.Lo)>>63)
}

func (i I128) Negative() bool {
	return int64(i.Hi) < 0
}

func (i I128) bits() U128 {
	return U128{Hi: i.Hi, Lo: i.Lo}
}

func (i I128) Big() *big.Int {
	if !i.Negative() {
		return i.bits().Big()
	}
	// 取反加一得到绝对值。
	lo, carry := bits.Add64(^i.Lo, 1, 0)
	hi, _ := bits.Add64(^i.Hi, 0, carry)
	abs := U128{Hi: hi, Lo: lo}.Big()
	return abs.Neg(abs)
}

func (i I128) String() string {
	return i.Big().String()
}

func (I128) Size() int { return 16 }

func (i I128) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	return i.bits().EncodeTo(ctx, cfg, w)
}

func (i *I128) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	var u U128
	if err := u.DecodeFrom(ctx, cfg, r); err != nil {
		return err
	}
	*i = I128(u)
	return nil
}
