package wire

import (
	"context"
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

const (
	varIntGroupBits = 7
	varIntGroupMask = 0x7F
	varIntContinue  = 0x80
	// 128 位数值最多需要 19 个 7 位分组。
	varIntMaxBytes = 19
	varIntMaxShift = 128
)

// VarInt 是 base-128 变长整数，低位分组在前，0x80 为续位标志。
// 内部保存 128 位无符号数值，有符号数在构造时先做 ZigZag。
type VarInt struct {
	v U128
}

func VarIntFromUint[T constraints.Unsigned](n T) VarInt {
	return VarInt{v: U128From64(uint64(n))}
}

// VarIntFromInt 对 n 做 ZigZag 后构造 VarInt。
func VarIntFromInt[T constraints.Signed](n T) VarInt {
	return VarInt{v: U128From64(ZigZagEncode(n))}
}

func VarIntFromU128(n U128) VarInt {
	return VarInt{v: n}
}

func VarIntFromI128(n I128) VarInt {
	return VarInt{v: ZigZagEncode128(n)}
}

// U128 返回原始数值，不做 ZigZag 解码。
func (v VarInt) U128() U128 {
	return v.v
}

// I128 按 ZigZag 解码原始数值。
func (v VarInt) I128() I128 {
	return ZigZagDecode128(v.v)
}

func (v VarInt) Uint64() (uint64, error) {
	x, ok := v.v.Uint64()
	if !ok {
		return 0, merr.WrapErrIntConversion(v.v.String(), "uint64")
	}
	return x, nil
}

// VarIntToUint 把 VarInt 转换为无符号整数，超出 T 的范围时返回 ErrIntConversion。
func VarIntToUint[T constraints.Unsigned](v VarInt) (T, error) {
	x, ok := v.v.Uint64()
	if !ok || x > uint64(^T(0)) {
		return 0, merr.WrapErrIntConversion(v.v.String(), typeName[T]())
	}
	return T(x), nil
}

// VarIntToInt 按 ZigZag 解码后转换为有符号整数，超出 T 的范围时返回 ErrIntConversion。
func VarIntToInt[T constraints.Signed](v VarInt) (T, error) {
	x, ok := v.v.Uint64()
	if !ok {
		return 0, merr.WrapErrIntConversion(v.v.String(), typeName[T]())
	}
	n := ZigZagDecode[int64](x)
	if int64(T(n)) != n {
		return 0, merr.WrapErrIntConversion(n, typeName[T]())
	}
	return T(n), nil
}

func (v VarInt) String() string {
	return v.v.String()
}

// Size 返回 7 位分组个数，零也占 1 字节。
func (v VarInt) Size() int {
	n := v.v.BitLen()
	if n == 0 {
		return 1
	}
	return (n + varIntGroupBits - 1) / varIntGroupBits
}

func (v VarInt) EncodeTo(ctx context.Context, _ Config, w Writer) (int, error) {
	var buf [varIntMaxBytes]byte
	num := v.v
	i := 0
	for num.Hi != 0 || num.Lo >= varIntContinue {
		buf[i] = byte(num.Lo&varIntGroupMask) | varIntContinue
		num = num.Rsh(varIntGroupBits)
		i++
	}
	buf[i] = byte(num.Lo)
	return writeRaw(ctx, w, buf[:i+1])
}

func (v *VarInt) DecodeFrom(ctx context.Context, _ Config, r Reader) error {
	var num U128
	var shift uint
	for {
		if shift >= varIntMaxShift {
			return merr.WrapErrVarIntOverflow(shift)
		}
		b, err := readU8(ctx, r)
		if err != nil {
			return err
		}
		group := uint64(b & varIntGroupMask)
		// 最后一组只剩 128-shift 位有效，多出的位会被截断。
		if shift+varIntGroupBits > varIntMaxShift && group>>(varIntMaxShift-shift) != 0 {
			return merr.WrapErrVarIntOverflow(shift)
		}
		num = num.Or(U128From64(group).Lsh(shift))
		if b&varIntContinue == 0 {
			break
		}
		shift += varIntGroupBits
	}
	v.v = num
	return nil
}

func typeName[T constraints.Integer]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}
