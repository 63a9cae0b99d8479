package framer

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/wirecodec/internal/network/packet"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// Framer 抽象了基于 Envelope 的打包/解包能力。
//
// 约定：
//   - 一帧数据的格式为：4 字节大端无符号整型（表示后续 Envelope 编码后的长度）+ Envelope 字节；
//   - Envelope 按 wire 格式编码，字节序由 wire.Config 决定，帧长度前缀始终为大端。
type Framer interface {
	// WriteFrame 将 Envelope 打包为一帧并以单次 Write 写入 w。
	WriteFrame(ctx context.Context, w io.Writer, env *packet.Envelope) error

	// ReadFrame 从 r 中读取一帧数据并解包为 Envelope。
	ReadFrame(ctx context.Context, r io.Reader) (*packet.Envelope, error)
}

// LengthPrefixedFramer 使用长度前缀（4 字节大端）作为帧边界。
type LengthPrefixedFramer struct {
	// MaxFrameSize 为允许的最大帧大小（Envelope 编码后长度），为 0 时使用 defaultMaxFrameSize。
	MaxFrameSize uint32
	Config       wire.Config
}

const (
	defaultMaxFrameSize uint32 = 16 * 1024 * 1024 // 16MB
	frameHeaderSize            = 4
)

var _ Framer = (*LengthPrefixedFramer)(nil)

// NewLengthPrefixedFramer 创建一个长度前缀帧编码器。
// maxFrameSize 为 0 时使用默认值。
func NewLengthPrefixedFramer(cfg wire.Config, maxFrameSize uint32) *LengthPrefixedFramer {
	if maxFrameSize == 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	return &LengthPrefixedFramer{
		MaxFrameSize: maxFrameSize,
		Config:       cfg,
	}
}

// WriteFrame 将 Envelope 编码为长度前缀帧并写入。
func (f *LengthPrefixedFramer) WriteFrame(ctx context.Context, w io.Writer, env *packet.Envelope) error {
	if env == nil {
		return merr.WrapErrParameterInvalidMsg("framer: envelope is nil")
	}

	length := env.Size()
	if uint64(length) > uint64(f.effectiveMaxSize()) {
		return merr.WrapErrFrameTooLarge(uint64(length), uint64(f.effectiveMaxSize()))
	}

	// 长度前缀与 Envelope 拼在同一块缓冲中，保证一帧只调用一次 Write。
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var header [frameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(length))
	_, _ = buf.Write(header[:])

	if _, err := f.Config.EncodeTo(ctx, *env, buf); err != nil {
		return err
	}

	if err := wire.NewWriter(w).WriteAll(ctx, buf.B); err != nil {
		return err
	}
	return nil
}

// ReadFrame 从流中读取一帧数据并解码为 Envelope。
func (f *LengthPrefixedFramer) ReadFrame(ctx context.Context, r io.Reader) (*packet.Envelope, error) {
	stream := wire.NewReader(r)

	var header [frameHeaderSize]byte
	if err := stream.ReadFull(ctx, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > f.effectiveMaxSize() {
		return nil, merr.WrapErrFrameTooLarge(uint64(length), uint64(f.effectiveMaxSize()))
	}

	// 使用 ByteBuffer 池降低频繁 make 带来的分配与 GC 压力。
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if cap(buf.B) < int(length) {
		buf.B = make([]byte, int(length))
	} else {
		buf.B = buf.B[:int(length)]
	}
	if err := stream.ReadFull(ctx, buf.B); err != nil {
		return nil, err
	}

	// Envelope 解码时会复制 Payload，归还缓冲是安全的。
	env := &packet.Envelope{}
	if err := f.Config.Decode(ctx, buf.B, env); err != nil {
		if merr.IsCanceledOrTimeout(err) {
			return nil, err
		}
		return nil, merr.WrapErrFrameMalformed(fmt.Sprintf("decode envelope: %v", err))
	}
	if env.Size() != int(length) {
		return nil, merr.WrapErrFrameMalformed(fmt.Sprintf("%d trailing bytes", int(length)-env.Size()))
	}
	return env, nil
}

func (f *LengthPrefixedFramer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return f.MaxFrameSize
}
