package wire

import (
	"bytes"
	"context"
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// roundTrip 编码 v，校验长度与 Size 一致后解码回 T。
func roundTrip[T Encoder](t *testing.T, cfg Config, v T, out T) T {
	t.Helper()
	ctx := context.Background()
	data, err := cfg.Encode(ctx, v)
	require.NoError(t, err)
	require.Len(t, data, v.Size())

	d, ok := any(&out).(Decoder)
	require.True(t, ok, "%T is not decodable", &out)
	require.NoError(t, cfg.Decode(ctx, data, d))
	return out
}

func assertRoundTrip[T Encoder](t *testing.T, v T) {
	t.Helper()
	for _, cfg := range []Config{DefaultConfig(), DefaultConfig().WithEndian(BigEndian)} {
		var zero T
		assert.Equal(t, v, roundTrip(t, cfg, v, zero), "endian=%s", cfg.Endian)
	}
}

type RoundTripSuite struct {
	suite.Suite
}

func (s *RoundTripSuite) TestFixedWidth() {
	t := s.T()
	assertRoundTrip(t, U8(math.MaxUint8))
	assertRoundTrip(t, U16(0xBEEF))
	assertRoundTrip(t, U32(0xDEADBEEF))
	assertRoundTrip(t, U64(math.MaxUint64))
	assertRoundTrip(t, I8(math.MinInt8))
	assertRoundTrip(t, I16(-12345))
	assertRoundTrip(t, I32(math.MinInt32))
	assertRoundTrip(t, I64(math.MaxInt64))
	assertRoundTrip(t, F32(3.25))
	assertRoundTrip(t, F64(-1e300))
	assertRoundTrip(t, U128{Hi: math.MaxUint64, Lo: 42})
	assertRoundTrip(t, I128From64(-7))
	assertRoundTrip(t, Uint(math.MaxUint32))
	assertRoundTrip(t, Int(math.MinInt32))
}

func (s *RoundTripSuite) TestScalars() {
	t := s.T()
	assertRoundTrip(t, Bool(true))
	assertRoundTrip(t, Bool(false))
	assertRoundTrip(t, Char('界'))
	assertRoundTrip(t, Char(utf8.MaxRune))
	assertRoundTrip(t, Unit{})
	assertRoundTrip(t, Str("hello, 世界"))
	assertRoundTrip(t, Str(""))
	assertRoundTrip(t, Bytes{0, 1, 2, 0xFF})
	assertRoundTrip(t, Bytes{})
	assertRoundTrip(t, VarIntFromUint(uint64(300)))
}

func (s *RoundTripSuite) TestContainers() {
	t := s.T()
	assertRoundTrip(t, Some(U16(7)))
	assertRoundTrip(t, None[U16]())
	assertRoundTrip(t, OkResult[Str, U32]("ok"))
	assertRoundTrip(t, ErrResult[Str, U32](404))
	assertRoundTrip(t, Seq[I32]{-1, 0, 1})
	assertRoundTrip(t, Seq[Str]{})
	assertRoundTrip(t, Seq[Option[U8]]{Some(U8(1)), None[U8](), Some(U8(3))})
	assertRoundTrip(t, Map[Str, U64]{"a": 1, "b": 2, "c": 3})
	assertRoundTrip(t, OrderedMap[U32, Str]{3: "c", 1: "a", 2: "b"})
	assertRoundTrip(t, NewSet[U8](1, 2, 3))
	assertRoundTrip(t, Tuple2[U8, Str]{First: 1, Second: "x"})
	assertRoundTrip(t, Tuple3[U8, U16, U32]{First: 1, Second: 2, Third: 3})
	assertRoundTrip(t, Tuple4[Bool, Char, F32, Seq[U8]]{First: true, Second: 'z', Third: 1.5, Fourth: Seq[U8]{9}})
	assertRoundTrip(t, Seq[Seq[U8]]{{1}, {2, 3}, {}})
	assertRoundTrip(t, Some(Array[I32, L3]{1, 2, 3}))
	assertRoundTrip(t, Seq[Array[U8, L2]]{{1, 2}, {3, 4}})
	assertRoundTrip(t, Tuple2[Array[U8, L2], U8]{First: Array[U8, L2]{7, 8}, Second: 9})
	assertRoundTrip(t, NewPtr(Array[U16, L1]{0xABCD}))
	assertRoundTrip(t, Array[Array[U8, L2], L2]{{1, 2}, {3, 4}})
}

func (s *RoundTripSuite) TestArray() {
	t := s.T()
	ctx := context.Background()
	arr := Array[I32, L3]{1, 2, 3}
	data, err := Encode(ctx, arr)
	s.NoError(err)
	s.Len(data, 12)
	s.Equal(arr.Size(), len(data))

	// 长度来自类型，不依赖解码目标的预置长度。
	var out Array[I32, L3]
	s.NoError(Decode(ctx, data, &out))
	s.Equal(arr, out)

	// Option 内的数组解码后，其后的字节仍对齐。
	nested := Tuple2[Option[Array[U8, L2]], U8]{First: Some(Array[U8, L2]{7, 8}), Second: 9}
	data, err = Encode(ctx, nested)
	s.NoError(err)
	s.Equal([]byte{1, 7, 8, 9}, data)
	var nestedOut Tuple2[Option[Array[U8, L2]], U8]
	require.NoError(t, Decode(ctx, data, &nestedOut))
	s.Equal(nested, nestedOut)

	// 长度不符的数组拒绝编码。
	_, err = Encode(ctx, Array[I32, L3]{1, 2})
	s.ErrorIs(err, merr.ErrInvalidLength)
	var buf bytes.Buffer
	_, err = EncodeTo(ctx, Array[U8, L1]{}, &buf)
	s.ErrorIs(err, merr.ErrInvalidLength)
	s.Zero(buf.Len())
}

func (s *RoundTripSuite) TestPtr() {
	ctx := context.Background()
	p := NewPtr(Str("boxed"))
	data, err := Encode(ctx, p)
	s.NoError(err)

	var out Ptr[Str]
	s.NoError(Decode(ctx, data, &out))
	s.Require().NotNil(out.P)
	s.Equal(Str("boxed"), *out.P)

	// nil 指针按零值编码，解码回来是指向零值的非 nil 指针。
	data, err = Encode(ctx, Ptr[U32]{})
	s.NoError(err)
	s.Equal([]byte{0, 0, 0, 0}, data)
	var zero Ptr[U32]
	s.NoError(Decode(ctx, data, &zero))
	s.Require().NotNil(zero.P)
	s.Equal(U32(0), *zero.P)
}

func (s *RoundTripSuite) TestNonZero() {
	nz, err := NewNonZero(U32(9))
	s.NoError(err)
	s.Equal(U32(9), roundTrip(s.T(), DefaultConfig(), nz, NonZero[U32]{}).Get())

	_, err = NewNonZero(U32(0))
	s.ErrorIs(err, merr.ErrNonZero)
}

func TestRoundTrip(t *testing.T) {
	suite.Run(t, new(RoundTripSuite))
}

func TestSizeAgreement(t *testing.T) {
	ctx := context.Background()
	values := []Encoder{
		U8(1), I64(-1), Str("abc"), Bytes{1, 2},
		Some(Seq[U16]{1, 2}), None[Str](),
		Map[U8, Str]{1: "one"}, OrderedMap[Str, Bool]{"x": true, "y": false},
		NewSet[Str]("a", "b"), Array[U64, L2]{1, 2},
		VarIntFromUint(uint64(math.MaxUint64)), VarIntFromU128(U128{Hi: math.MaxUint64, Lo: math.MaxUint64}),
		Tuple2[Unit, Char]{Second: 'q'}, NewPtr(F64(2.5)),
	}
	for _, v := range values {
		for _, cfg := range []Config{DefaultConfig(), {Endian: BigEndian}} {
			data, err := cfg.Encode(ctx, v)
			require.NoError(t, err)
			assert.Len(t, data, v.Size(), "%T", v)
		}
	}
}

func TestEndianness(t *testing.T) {
	ctx := context.Background()
	little, err := DefaultConfig().Encode(ctx, U32(0x01020304))
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 3, 2, 1}, little)

	big, err := Config{Endian: BigEndian}.Encode(ctx, U32(0x01020304))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, big)

	data, err := Config{Endian: BigEndian}.Encode(ctx, U128{Hi: 1, Lo: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2}, data)

	// 长度前缀同样遵循配置的字节序。
	data, err = Config{Endian: BigEndian}.Encode(ctx, Str("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1, 'a'}, data)

	e, err := ParseEndian("BE")
	require.NoError(t, err)
	assert.Equal(t, BigEndian, e)
	assert.Equal(t, "big", e.String())
	_, err = ParseEndian("middle")
	assert.Error(t, err)
}

func TestOrderedMapIsDeterministic(t *testing.T) {
	ctx := context.Background()
	m := OrderedMap[U8, U8]{3: 30, 1: 10, 2: 20}
	data, err := Encode(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0, 1, 10, 2, 20, 3, 30}, data)
}

func TestBoolDecodesNonZeroAsTrue(t *testing.T) {
	var b Bool
	require.NoError(t, Decode(context.Background(), []byte{7}, &b))
	assert.True(t, bool(b))
}

func TestSetOperations(t *testing.T) {
	set := NewSet[U8](1, 2)
	set.Insert(3)
	assert.True(t, set.Contain(1, 2, 3))
	set.Remove(2)
	assert.False(t, set.Contain(2))
	assert.Equal(t, 2, set.Len())
	assert.ElementsMatch(t, []U8{1, 3}, set.Collect())
}

func TestEncodeToStream(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	n, err := EncodeTo(ctx, Seq[U16]{1, 2}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	var out Seq[U16]
	require.NoError(t, DecodeFrom(ctx, &buf, &out))
	assert.Equal(t, Seq[U16]{1, 2}, out)
}

func TestDequeMatchesSeqLayout(t *testing.T) {
	ctx := context.Background()
	d := NewDeque[U16](2, 3)
	d.PushFront(1)
	assert.Equal(t, Seq[U16]{1, 2, 3}.Size(), d.Size())

	data, err := Encode(ctx, d)
	require.NoError(t, err)
	seqData, err := Encode(ctx, Seq[U16]{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, seqData, data)

	var out Deque[U16]
	require.NoError(t, Decode(ctx, data, &out))
	assert.Equal(t, []U16{1, 2, 3}, out.Slice())

	back, ok := out.PopBack()
	assert.True(t, ok)
	assert.Equal(t, U16(3), back)

	var empty Deque[Str]
	data, err = Encode(ctx, empty)
	require.NoError(t, err)
	assert.Len(t, data, lenPrefixSize)
}
