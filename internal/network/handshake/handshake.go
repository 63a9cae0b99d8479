// Package handshake 在连接建立后、收发业务帧之前，协商双方的 wire 修订号与字节序。
//
// 握手报文始终按小端编码，与随后业务帧使用的字节序无关。
package handshake

import (
	"context"
	"io"
	"time"

	"github.com/blang/semver/v4"
	"go.uber.org/zap"

	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// Magic 为握手报文的固定前缀 "WIRE"。
const Magic uint32 = 0x57495245

const defaultTimeout = 5 * time.Second

// Hello 为客户端发出的握手请求。
type Hello struct {
	Magic    wire.U32
	Revision wire.Str
	Endian   wire.U8
}

func (h Hello) Size() int {
	return wire.SizeOf(h.Magic, h.Revision, h.Endian)
}

func (h Hello) EncodeTo(ctx context.Context, cfg wire.Config, w wire.Writer) (int, error) {
	return wire.EncodeFields(ctx, cfg, w, h.Magic, h.Revision, h.Endian)
}

func (h *Hello) DecodeFrom(ctx context.Context, cfg wire.Config, r wire.Reader) error {
	return wire.DecodeFields(ctx, cfg, r, &h.Magic, &h.Revision, &h.Endian)
}

// Reply 为服务端的应答：Ok 携带服务端修订号，Err 携带拒绝原因。
type Reply = wire.Result[wire.Str, wire.Str]

// Config 描述本端的修订号与可接受的对端修订号范围。
type Config struct {
	Revision semver.Version
	Accept   semver.Range
	// AcceptExpr 为 Accept 的原始表达式，仅用于错误信息。
	AcceptExpr string
	Endian     wire.Endian
	// Timeout 为整个握手过程的超时，为 0 时使用默认值。
	Timeout time.Duration
}

// NewConfig 解析修订号与范围表达式，例如 "1.2.0" 与 ">=1.0.0 <2.0.0"。
func NewConfig(revision, acceptRange string, endian wire.Endian) (Config, error) {
	rev, err := semver.Parse(revision)
	if err != nil {
		return Config{}, merr.WrapErrParameterInvalidMsg("handshake: revision %q: %s", revision, err.Error())
	}
	rng, err := semver.ParseRange(acceptRange)
	if err != nil {
		return Config{}, merr.WrapErrParameterInvalidMsg("handshake: accept range %q: %s", acceptRange, err.Error())
	}
	return Config{Revision: rev, Accept: rng, AcceptExpr: acceptRange, Endian: endian}, nil
}

func (c Config) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// check 校验对端 Hello，返回对端修订号。
func (c Config) check(remote Hello) (semver.Version, error) {
	if uint32(remote.Magic) != Magic {
		return semver.Version{}, merr.WrapErrFrameMalformed("handshake: bad magic")
	}
	rev, err := semver.Parse(string(remote.Revision))
	if err != nil {
		return semver.Version{}, merr.WrapErrHandshakeRejected(string(remote.Revision), c.AcceptExpr, "unparsable revision")
	}
	if c.Accept != nil && !c.Accept(rev) {
		return rev, merr.WrapErrHandshakeRejected(rev.String(), c.AcceptExpr, "revision out of range")
	}
	if wire.Endian(remote.Endian) != c.Endian {
		return rev, merr.WrapErrHandshakeRejected(wire.Endian(remote.Endian).String(), c.Endian.String(), "endian mismatch")
	}
	return rev, nil
}

// Client 发送 Hello 并等待应答，成功时返回服务端修订号。
func (c Config) Client(ctx context.Context, conn io.ReadWriter) (semver.Version, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	cfg := wire.DefaultConfig()
	hello := Hello{Magic: wire.U32(Magic), Revision: wire.Str(c.Revision.String()), Endian: wire.U8(c.Endian)}
	if _, err := cfg.EncodeTo(ctx, hello, conn); err != nil {
		return semver.Version{}, err
	}

	var reply Reply
	if err := cfg.DecodeFrom(ctx, conn, &reply); err != nil {
		return semver.Version{}, err
	}
	if reply.IsErr {
		return semver.Version{}, merr.WrapErrHandshakeRejected(c.Revision.String(), "", string(reply.Err))
	}
	rev, err := semver.Parse(string(reply.Ok))
	if err != nil {
		return semver.Version{}, merr.WrapErrHandshakeRejected(string(reply.Ok), c.AcceptExpr, "unparsable server revision")
	}
	if c.Accept != nil && !c.Accept(rev) {
		return rev, merr.WrapErrHandshakeRejected(rev.String(), c.AcceptExpr, "server revision out of range")
	}
	return rev, nil
}

// Server 读取 Hello 并应答，成功时返回客户端修订号；拒绝时仍会把原因告知客户端。
func (c Config) Server(ctx context.Context, conn io.ReadWriter) (semver.Version, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	cfg := wire.DefaultConfig()
	var hello Hello
	if err := cfg.DecodeFrom(ctx, conn, &hello); err != nil {
		return semver.Version{}, err
	}

	rev, checkErr := c.check(hello)
	reply := wire.OkResult[wire.Str, wire.Str](wire.Str(c.Revision.String()))
	if checkErr != nil {
		reply = wire.ErrResult[wire.Str, wire.Str](wire.Str(checkErr.Error()))
		log.Ctx(ctx).Warn("handshake rejected",
			zap.String("remoteRevision", string(hello.Revision)),
			zap.Error(checkErr))
	}
	if _, err := cfg.EncodeTo(ctx, reply, conn); err != nil {
		return rev, merr.Combine(checkErr, err)
	}
	return rev, checkErr
}
