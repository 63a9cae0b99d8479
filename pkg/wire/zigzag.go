package wire

import (
	"golang.org/x/exp/constraints"
)

// ZigZagEncode 把有符号整数映射为无符号整数，使绝对值小的数得到小的编码：
// encode(n) = (n << 1) ^ (n >> (bits-1))。
// 0→0，-1→1，1→2，-2→3，2→4。结果落在 T 对应的无符号类型范围内。
func ZigZagEncode[T constraints.Signed](n T) uint64 {
	x := int64(n)
	return uint64((x << 1) ^ (x >> 63))
}

// ZigZagDecode 是 ZigZagEncode 的逆运算：decode(u) = (u >> 1) ^ -(u & 1)。
func ZigZagDecode[T constraints.Signed](u uint64) T {
	return T(int64(u>>1) ^ -int64(u&1))
}

// ZigZagEncode128 是 ZigZagEncode 的 128 位版本。
func ZigZagEncode128(n I128) U128 {
	var sign uint64
	if n.Negative() {
		sign = ^uint64(0)
	}
	return n.bits().Lsh(1).Xor(U128{Hi: sign, Lo: sign})
}

// ZigZagDecode128 是 ZigZagDecode 的 128 位版本。
func ZigZagDecode128(u U128) I128 {
	var mask uint64
	if u.Lo&1 == 1 {
		mask = ^uint64(0)
	}
	return I128(u.Rsh(1).Xor(U128{Hi: mask, Lo: mask}))
}
