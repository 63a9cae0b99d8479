package wire

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Reader 是解码使用的字节源。ReadFull 要么填满 p，要么返回错误。
type Reader interface {
	ReadFull(ctx context.Context, p []byte) error
}

// Writer 是编码使用的字节汇。WriteAll 要么写完 p，要么返回错误。
type Writer interface {
	WriteAll(ctx context.Context, p []byte) error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// streamReader 把 io.Reader 适配为 Reader。
// 每次读取前检查 ctx；底层支持读超时（如 net.Conn）时套用 ctx 的截止时间。
type streamReader struct {
	r io.Reader
}

// NewReader 把 io.Reader 适配为 Reader。
func NewReader(r io.Reader) Reader {
	if rr, ok := r.(Reader); ok {
		return rr
	}
	return &streamReader{r: r}
}

func (s *streamReader) ReadFull(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := s.r.(readDeadliner); ok {
		if deadline, has := ctx.Deadline(); has {
			if err := d.SetReadDeadline(deadline); err != nil {
				return merr.WrapErrIo(err, "set read deadline")
			}
			defer d.SetReadDeadline(time.Time{})
		}
	}
	if _, err := io.ReadFull(s.r, p); err != nil {
		return streamError(ctx, err)
	}
	return nil
}

// streamWriter 把 io.Writer 适配为 Writer。
type streamWriter struct {
	w io.Writer
}

// NewWriter 把 io.Writer 适配为 Writer。
func NewWriter(w io.Writer) Writer {
	if ww, ok := w.(Writer); ok {
		return ww
	}
	return &streamWriter{w: w}
}

func (s *streamWriter) WriteAll(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := s.w.(writeDeadliner); ok {
		if deadline, has := ctx.Deadline(); has {
			if err := d.SetWriteDeadline(deadline); err != nil {
				return merr.WrapErrIo(err, "set write deadline")
			}
			defer d.SetWriteDeadline(time.Time{})
		}
	}
	for len(p) > 0 {
		n, err := s.w.Write(p)
		if err != nil {
			return streamError(ctx, err)
		}
		if n == 0 {
			return merr.WrapErrIo(io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// streamError 在 ctx 已结束时返回 ctx 的错误，其余情况包装为 ErrIo。
func streamError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// 底层超时可能早于 ctx 的定时器触发。
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	if errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
		return err
	}
	return merr.WrapErrIo(err)
}

// BytesReader 是基于内存切片的 Reader，解码时不经过 io.Reader 适配。
type BytesReader struct {
	data []byte
	off  int
}

func NewBytesReader(data []byte) *BytesReader {
	return &BytesReader{data: data}
}

func (b *BytesReader) ReadFull(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	remain := len(b.data) - b.off
	if remain < len(p) {
		if remain == 0 && len(p) > 0 {
			return merr.WrapErrIo(io.EOF)
		}
		b.off = len(b.data)
		return merr.WrapErrIo(io.ErrUnexpectedEOF)
	}
	b.off += copy(p, b.data[b.off:])
	return nil
}

// Len 返回尚未读取的字节数。
func (b *BytesReader) Len() int {
	return len(b.data) - b.off
}

// BytesWriter 是追加到内存切片的 Writer，写入不会失败。
type BytesWriter struct {
	buf []byte
}

// NewBytesWriter 创建一个预分配 capacity 字节的 BytesWriter。
func NewBytesWriter(capacity int) *BytesWriter {
	return &BytesWriter{buf: make([]byte, 0, capacity)}
}

func (b *BytesWriter) WriteAll(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.buf = append(b.buf, p...)
	return nil
}

func (b *BytesWriter) Bytes() []byte {
	return b.buf
}

func (b *BytesWriter) Reset() {
	b.buf = b.buf[:0]
}
