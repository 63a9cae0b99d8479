package wire

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

const (
	// 解码时依据长度前缀预分配的上限，防止恶意前缀触发超大分配。
	maxPreallocElems = 1024
	maxPreallocBytes = 64 << 10

	lenPrefixSize = 8
)

func writeLen(ctx context.Context, cfg Config, w Writer, n int) (int, error) {
	return writeU64(ctx, cfg, w, uint64(n))
}

// readLen 读取 u64 长度前缀，并确认它能放进 int。
func readLen(ctx context.Context, cfg Config, r Reader) (int, error) {
	n, err := readU64(ctx, cfg, r)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return 0, merr.WrapErrInvalidLength(n)
	}
	return int(n), nil
}

// readBytes 读取 n 字节。超过预分配上限时分块读取，内存随实际到达的数据增长。
func readBytes(ctx context.Context, r Reader, n int) ([]byte, error) {
	if n <= maxPreallocBytes {
		buf := make([]byte, n)
		if err := r.ReadFull(ctx, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	buf := make([]byte, 0, maxPreallocBytes)
	for len(buf) < n {
		chunk := min(n-len(buf), maxPreallocBytes)
		start := len(buf)
		buf = append(buf, make([]byte, chunk)...)
		if err := r.ReadFull(ctx, buf[start:]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Seq 是变长序列：u64 长度前缀，随后按顺序排列各元素。
type Seq[T Encoder] []T

func (s Seq[T]) Size() int {
	size := lenPrefixSize
	for i := range s {
		size += s[i].Size()
	}
	return size
}

func (s Seq[T]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	n, err := writeLen(ctx, cfg, w, len(s))
	if err != nil {
		return n, err
	}
	m, err := encodeAll(ctx, cfg, w, s...)
	return n + m, err
}

func (s *Seq[T]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	n, err := readLen(ctx, cfg, r)
	if err != nil {
		return err
	}
	out := make(Seq[T], 0, min(n, maxPreallocElems))
	for i := 0; i < n; i++ {
		var v T
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return err
		}
		out = append(out, v)
	}
	*s = out
	return nil
}

// Bytes 是原始字节串：u64 长度前缀加内容。
type Bytes []byte

func (b Bytes) Size() int {
	return lenPrefixSize + len(b)
}

func (b Bytes) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	n, err := writeLen(ctx, cfg, w, len(b))
	if err != nil {
		return n, err
	}
	if len(b) == 0 {
		return n, nil
	}
	m, err := writeRaw(ctx, w, b)
	return n + m, err
}

func (b *Bytes) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	n, err := readLen(ctx, cfg, r)
	if err != nil {
		return err
	}
	buf, err := readBytes(ctx, r, n)
	if err != nil {
		return err
	}
	*b = buf
	return nil
}

// Str 是 UTF-8 字符串，编码同 Bytes，解码时校验 UTF-8。
type Str string

func (s Str) Size() int {
	return lenPrefixSize + len(s)
}

func (s Str) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	n, err := writeLen(ctx, cfg, w, len(s))
	if err != nil {
		return n, err
	}
	if len(s) == 0 {
		return n, nil
	}
	m, err := writeRaw(ctx, w, []byte(s))
	return n + m, err
}

func (s *Str) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	n, err := readLen(ctx, cfg, r)
	if err != nil {
		return err
	}
	buf, err := readBytes(ctx, r, n)
	if err != nil {
		return err
	}
	if !utf8.Valid(buf) {
		return merr.WrapErrInvalidUtf8String(validUpTo(buf))
	}
	*s = Str(buf)
	return nil
}

// validUpTo 返回第一个非法 UTF-8 序列的起始位置。
func validUpTo(b []byte) int {
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return i
}
