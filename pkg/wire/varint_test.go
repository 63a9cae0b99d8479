package wire

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

func TestVarIntEncoding(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		value    uint64
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		v := VarIntFromUint(c.value)
		data, err := Encode(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, c.expected, data, "value=%d", c.value)
		assert.Equal(t, len(c.expected), v.Size())
	}
}

func TestVarInt128RoundTrip(t *testing.T) {
	ctx := context.Background()
	values := []U128{
		{},
		U128From64(1),
		U128From64(math.MaxUint64),
		{Hi: 1},
		{Hi: 1 << 20, Lo: 0x5555},
		{Hi: math.MaxUint64, Lo: math.MaxUint64},
	}
	for _, u := range values {
		v := VarIntFromU128(u)
		data, err := Encode(ctx, v)
		require.NoError(t, err)
		require.Len(t, data, v.Size())

		var out VarInt
		require.NoError(t, Decode(ctx, data, &out))
		assert.Equal(t, u, out.U128(), "value=%s", u)
	}
	assert.Equal(t, varIntMaxBytes, VarIntFromU128(U128{Hi: math.MaxUint64, Lo: math.MaxUint64}).Size())
}

func TestVarIntOverflow(t *testing.T) {
	data := make([]byte, varIntMaxBytes+1)
	for i := range data {
		data[i] = 0xFF
	}
	var out VarInt
	err := Decode(context.Background(), data, &out)
	assert.ErrorIs(t, err, merr.ErrVarIntOverflow)
	raw, ok := merr.RawValue(err)
	assert.True(t, ok)
	assert.Equal(t, uint64((varIntMaxBytes-1)*varIntGroupBits), raw)

	// 第 19 组只能携带 2 位，超出的位不能被静默丢弃。
	data = data[:varIntMaxBytes]
	data[varIntMaxBytes-1] = 0x7F
	err = Decode(context.Background(), data, &out)
	assert.ErrorIs(t, err, merr.ErrVarIntOverflow)

	data[varIntMaxBytes-1] = 0x04
	err = Decode(context.Background(), data, &out)
	assert.ErrorIs(t, err, merr.ErrVarIntOverflow)

	// 有效位未溢出但仍带延续位时，在下一组报告溢出。
	data = append(data[:varIntMaxBytes-1], 0x83)
	err = Decode(context.Background(), data, &out)
	assert.ErrorIs(t, err, merr.ErrVarIntOverflow)
	raw, _ = merr.RawValue(err)
	assert.Equal(t, uint64(varIntMaxBytes*varIntGroupBits), raw)

	// 恰好 128 位全 1 仍然合法。
	data[varIntMaxBytes-1] = 0x03
	require.NoError(t, Decode(context.Background(), data, &out))
	assert.Equal(t, U128{Hi: math.MaxUint64, Lo: math.MaxUint64}, out.U128())
}

func TestVarIntTruncated(t *testing.T) {
	var out VarInt
	err := Decode(context.Background(), []byte{0x80, 0x80}, &out)
	assert.ErrorIs(t, err, merr.ErrIo)
}

func TestVarIntConversions(t *testing.T) {
	u8, err := VarIntToUint[uint8](VarIntFromUint(uint16(255)))
	require.NoError(t, err)
	assert.Equal(t, uint8(255), u8)

	_, err = VarIntToUint[uint8](VarIntFromUint(uint16(300)))
	assert.ErrorIs(t, err, merr.ErrIntConversion)

	_, err = VarIntToUint[uint64](VarIntFromU128(U128{Hi: 1}))
	assert.ErrorIs(t, err, merr.ErrIntConversion)

	i8, err := VarIntToInt[int8](VarIntFromInt(int8(math.MinInt8)))
	require.NoError(t, err)
	assert.Equal(t, int8(math.MinInt8), i8)

	_, err = VarIntToInt[int8](VarIntFromInt(int16(200)))
	assert.ErrorIs(t, err, merr.ErrIntConversion)

	i64, err := VarIntToInt[int64](VarIntFromInt(int64(math.MinInt64)))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), i64)

	// 有符号数先 ZigZag：-1 编码为 1。
	assert.Equal(t, U128From64(1), VarIntFromInt(-1).U128())
	assert.Equal(t, I128From64(-1), VarIntFromInt(-1).I128())

	n, err := VarIntFromUint(uint32(77)).Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(77), n)

	min128 := I128{Hi: 1 << 63}
	assert.Equal(t, min128, VarIntFromI128(min128).I128())
}

func TestZigZag(t *testing.T) {
	assert.Equal(t, uint64(0), ZigZagEncode(int8(0)))
	assert.Equal(t, uint64(1), ZigZagEncode(int8(-1)))
	assert.Equal(t, uint64(2), ZigZagEncode(int8(1)))
	assert.Equal(t, uint64(3), ZigZagEncode(int8(-2)))
	assert.Equal(t, uint64(4), ZigZagEncode(int8(2)))
	assert.Equal(t, uint64(math.MaxUint8), ZigZagEncode(int8(math.MinInt8)))
	assert.Equal(t, uint64(math.MaxUint8-1), ZigZagEncode(int8(math.MaxInt8)))
	assert.Equal(t, uint64(math.MaxUint8-2), ZigZagEncode(int8(math.MinInt8+1)))

	for i := math.MinInt8; i <= math.MaxInt8; i++ {
		encoded := ZigZagEncode(int8(i))
		assert.LessOrEqual(t, encoded, uint64(math.MaxUint8))
		assert.Equal(t, int8(i), ZigZagDecode[int8](encoded))
	}

	assert.Equal(t, uint64(math.MaxUint64), ZigZagEncode(int64(math.MinInt64)))
	assert.Equal(t, int64(math.MinInt64), ZigZagDecode[int64](math.MaxUint64))
	assert.Equal(t, int32(math.MaxInt32), ZigZagDecode[int32](ZigZagEncode(int32(math.MaxInt32))))
}

func TestZigZag128(t *testing.T) {
	maxU := U128{Hi: math.MaxUint64, Lo: math.MaxUint64}
	minI := I128{Hi: 1 << 63}
	maxI := I128{Hi: math.MaxInt64, Lo: math.MaxUint64}

	assert.Equal(t, U128{}, ZigZagEncode128(I128{}))
	assert.Equal(t, U128From64(1), ZigZagEncode128(I128From64(-1)))
	assert.Equal(t, U128From64(2), ZigZagEncode128(I128From64(1)))
	assert.Equal(t, maxU, ZigZagEncode128(minI))
	assert.Equal(t, U128{Hi: math.MaxUint64, Lo: math.MaxUint64 - 1}, ZigZagEncode128(maxI))

	for _, v := range []I128{minI, maxI, I128From64(-5), I128From64(math.MaxInt64), I128From64(math.MinInt64)} {
		assert.Equal(t, v, ZigZagDecode128(ZigZagEncode128(v)), "value=%s", v)
	}
}

func TestU128Arithmetic(t *testing.T) {
	one := U128From64(1)
	assert.Equal(t, U128{Hi: 1}, one.Lsh(64))
	assert.Equal(t, U128{Hi: 1 << 63}, one.Lsh(127))
	assert.Equal(t, U128{}, one.Lsh(128))
	assert.Equal(t, one, U128{Hi: 1}.Rsh(64))
	assert.Equal(t, 65, U128{Hi: 1}.BitLen())
	assert.Equal(t, 0, U128{}.BitLen())
	assert.Equal(t, -1, one.Cmp(U128{Hi: 1}))
	assert.Equal(t, "18446744073709551616", U128{Hi: 1}.String())
	assert.Equal(t, "-1", I128From64(-1).String())

	v, ok := I128From64(-42).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(-42), v)
	_, ok = I128{Hi: 1}.Int64()
	assert.False(t, ok)
}
