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
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	var specificErr codecError
	if errors.As(err, &specificErr) {
		return specificErr.code()
	}
	if errors.Is(err, context.Canceled) {
		return CanceledCode
	} else if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutCode
	}
	return errUnexpected.code()
}

// Kind 返回错误的简短分类名，用作指标标签。
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var specificErr codecError
	if errors.As(err, &specificErr) {
		return specificErr.kind
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	} else if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return errUnexpected.kind
}

// RawValue 返回叶子错误携带的原始值，例如非法的 tag、长度或码点。
func RawValue(err error) (any, bool) {
	var specificErr codecError
	if errors.As(err, &specificErr) && specificErr.raw != nil {
		return specificErr.raw, true
	}
	return nil, false
}

func IsRetryableErr(err error) bool {
	var specificErr codecError
	if errors.As(err, &specificErr) {
		return specificErr.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func GetErrorType(err error) ErrorType {
	var specificErr codecError
	if errors.As(err, &specificErr) {
		return specificErr.errType
	}

	return SystemError
}

// Codec related

// WrapErrIo 包装传输层错误，原始错误保留在 Unwrap 链上。
func WrapErrIo(cause error, msg ...string) error {
	if cause == nil {
		return nil
	}
	err := ErrIo
	err.cause = cause
	if len(msg) > 0 {
		return errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidChar(code uint32) error {
	return withRaw(wrapFields(ErrInvalidChar, value("code", fmt.Sprintf("%#x", code))), code)
}

func WrapErrInvalidEnumVariant(tag uint64, msg ...string) error {
	err := withRaw(wrapFields(ErrInvalidEnumVariant, value("tag", tag)), tag)
	if len(msg) > 0 {
		return errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidLength(length uint64, msg ...string) error {
	err := withRaw(wrapFields(ErrInvalidLength, value("length", length)), length)
	if len(msg) > 0 {
		return errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// WrapErrInvalidUtf8String 记录第一个非法字节的位置。
func WrapErrInvalidUtf8String(validUpTo int) error {
	return withRaw(wrapFields(ErrInvalidUtf8String, value("validUpTo", validUpTo)), uint64(validUpTo))
}

func WrapErrPartiallyFilledArray(filled, expected int) error {
	return withRaw(wrapFields(ErrPartiallyFilledArray, value("filled", filled), value("expected", expected)), uint64(filled))
}

func WrapErrNonZero(typeName string) error {
	return wrapFields(ErrNonZero, value("type", typeName))
}

func WrapErrIntConversion(v any, target string) error {
	return withRaw(wrapFields(ErrIntConversion, value("value", v), value("target", target)), fmt.Sprint(v))
}

func WrapErrVarIntOverflow(shift uint) error {
	return withRaw(wrapFields(ErrVarIntOverflow, value("shift", shift)), uint64(shift))
}

func WrapErrNotDecodable(typeName string) error {
	return wrapFields(ErrNotDecodable, value("type", typeName))
}

// Network related

func WrapErrFrameTooLarge(size, limit uint64) error {
	return withRaw(wrapFields(ErrFrameTooLarge, bound("size", size, 0, limit)), size)
}

func WrapErrFrameMalformed(reason string) error {
	return wrapFieldsWithDesc(ErrFrameMalformed, reason)
}

func WrapErrHandshakeRejected(remote string, expected string, msg ...string) error {
	err := wrapFields(ErrHandshakeRejected, value("remote", remote), value("expected", expected))
	if len(msg) > 0 {
		return errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrRouteNotFound(op uint32) error {
	return withRaw(wrapFields(ErrRouteNotFound, value("op", op)), uint64(op))
}

func WrapErrRouteDuplicated(op uint32) error {
	return withRaw(wrapFields(ErrRouteDuplicated, value("op", op)), uint64(op))
}

func WrapErrSessionClosed(id uint64, msg ...string) error {
	err := wrapFields(ErrSessionClosed, value("session", id))
	if len(msg) > 0 {
		return errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrServiceUnavailable(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceUnavailable, reason)
	if len(msg) > 0 {
		return errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// WrapErrRemote 表示对端以错误报文应答，code 为对端的错误码。
func WrapErrRemote(code int32, message string) error {
	return withRaw(wrapFieldsWithDesc(ErrRemote, message, value("code", code)), code)
}

// Store related

func WrapErrIoKeyNotFound(key string, msg ...string) error {
	var err error = wrapFields(ErrIoKeyNotFound, value("key", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Parameter related

func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	var err error = wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrOperationNotSupported(operation string) error {
	return wrapFields(ErrOperationNotSupported, value("operation", operation))
}

func wrapFields(err codecError, fields ...errorField) codecError {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err codecError, desc string, fields ...errorField) codecError {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

func withRaw(err codecError, raw any) codecError {
	err.raw = raw
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}
