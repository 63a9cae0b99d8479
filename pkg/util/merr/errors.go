// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 在这里定义叶子错误。
// 注意：新增错误前先确认下面已有的错误能否复用。
// 命名规则：Err + 所属模块前缀 + 错误名。
var (
	// Codec 相关：编解码过程中的全部失败类型。
	ErrIo                   = newCodecError("io error", "io", 100, true)
	ErrInvalidChar          = newCodecError("invalid character", "invalid_char", 101, false, WithErrorType(InputError))
	ErrInvalidEnumVariant   = newCodecError("invalid enum variant", "invalid_enum_variant", 102, false, WithErrorType(InputError))
	ErrInvalidLength        = newCodecError("invalid length", "invalid_length", 103, false, WithErrorType(InputError))
	ErrInvalidUtf8String    = newCodecError("invalid utf-8 string", "invalid_utf8", 104, false, WithErrorType(InputError))
	ErrPartiallyFilledArray = newCodecError("partially filled array", "partially_filled_array", 105, false)
	ErrNonZero              = newCodecError("unexpected zero for non-zero integer", "non_zero", 106, false, WithErrorType(InputError))
	ErrIntConversion        = newCodecError("integer conversion overflow", "int_conversion", 107, false, WithErrorType(InputError))
	ErrVarIntOverflow       = newCodecError("varint exceeds 128 bits, stream corrupted", "varint_overflow", 108, false, WithErrorType(InputError))
	// 目标类型没有实现 Decoder，属于编程错误。
	ErrNotDecodable = newCodecError("type is not decodable", "not_decodable", 109, false)

	// Network 相关
	ErrFrameTooLarge      = newCodecError("frame too large", "frame_too_large", 200, false, WithErrorType(InputError))
	ErrFrameMalformed     = newCodecError("malformed frame", "frame_malformed", 201, false, WithErrorType(InputError))
	ErrHandshakeRejected  = newCodecError("handshake rejected", "handshake_rejected", 202, false)
	ErrRouteNotFound      = newCodecError("route not found", "route_not_found", 203, false, WithErrorType(InputError))
	ErrRouteDuplicated    = newCodecError("route already registered", "route_duplicated", 204, false)
	ErrSessionClosed      = newCodecError("session closed", "session_closed", 205, true)
	ErrServiceUnavailable = newCodecError("service unavailable", "service_unavailable", 206, true)
	ErrRemote             = newCodecError("remote error", "remote", 207, false)

	// Store 相关
	ErrIoKeyNotFound = newCodecError("key not found", "key_not_found", 300, false)

	// Parameter 相关
	ErrParameterInvalid = newCodecError("invalid parameter", "parameter_invalid", 1100, false, WithErrorType(InputError))

	// General
	ErrOperationNotSupported = newCodecError("unsupported operation", "not_supported", 3000, false)

	// 不要导出该错误，
	// 仅用于把未知错误转换为 codecError。
	errUnexpected = newCodecError("unexpected error", "unexpected", (1<<16)-1, false)
)

type errorOption func(*codecError)

func WithDetail(detail string) errorOption {
	return func(err *codecError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *codecError) {
		err.errType = etype
	}
}

// codecError 是仓库内所有可识别错误的统一载体。
//
// raw 只允许存放可比较的标量（数字或字符串），
// 因为 errors.Is 可能对 codecError 做值比较。
type codecError struct {
	msg       string
	detail    string
	kind      string
	retriable bool
	errCode   int32
	errType   ErrorType

	raw   any
	cause error
}

func newCodecError(msg string, kind string, code int32, retriable bool, options ...errorOption) codecError {
	err := codecError{
		msg:       msg,
		detail:    msg,
		kind:      kind,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e codecError) code() int32 {
	return e.errCode
}

func (e codecError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e codecError) Detail() string {
	return e.detail
}

// Unwrap 返回底层原因（例如传输层的 io 错误），使 errors.Is(err, io.EOF) 依旧可用。
func (e codecError) Unwrap() error {
	return e.cause
}

func (e codecError) Is(err error) bool {
	var target codecError
	if errors.As(err, &target) {
		return e.errCode == target.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 为了让 merr 的判断对 multiErrors 生效，
	// 这里把最后一个错误当作整体的 cause。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
