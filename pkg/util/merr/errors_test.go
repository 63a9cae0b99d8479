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
	"io"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrInvalidEnumVariant(7)
	wrapped := errors.Wrap(err, "failed to decode option")
	s.ErrorIs(wrapped, ErrInvalidEnumVariant)
	s.Equal(Code(ErrInvalidEnumVariant), Code(wrapped))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(errUnexpected.errCode, Code(io.EOF))
	s.Equal(int32(0), Code(nil))
}

func (s *ErrSuite) TestWrap() {
	// 编解码相关错误。
	s.ErrorIs(WrapErrIo(io.ErrUnexpectedEOF), ErrIo)
	s.ErrorIs(WrapErrIo(os.ErrClosed, "write u32"), ErrIo)
	s.ErrorIs(WrapErrInvalidChar(0xD800), ErrInvalidChar)
	s.ErrorIs(WrapErrInvalidEnumVariant(3, "decode result"), ErrInvalidEnumVariant)
	s.ErrorIs(WrapErrInvalidLength(1<<63, "decode seq"), ErrInvalidLength)
	s.ErrorIs(WrapErrInvalidUtf8String(2), ErrInvalidUtf8String)
	s.ErrorIs(WrapErrPartiallyFilledArray(1, 3), ErrPartiallyFilledArray)
	s.ErrorIs(WrapErrNonZero("uint32"), ErrNonZero)
	s.ErrorIs(WrapErrIntConversion(300, "uint8"), ErrIntConversion)
	s.ErrorIs(WrapErrVarIntOverflow(133), ErrVarIntOverflow)
	s.ErrorIs(WrapErrNotDecodable("wire.U8"), ErrNotDecodable)

	// 网络相关错误。
	s.ErrorIs(WrapErrFrameTooLarge(1<<30, 1<<24), ErrFrameTooLarge)
	s.ErrorIs(WrapErrFrameMalformed("trailing bytes"), ErrFrameMalformed)
	s.ErrorIs(WrapErrHandshakeRejected("127.0.0.1:1", ">=1.0.0 <2.0.0"), ErrHandshakeRejected)
	s.ErrorIs(WrapErrRouteNotFound(42), ErrRouteNotFound)
	s.ErrorIs(WrapErrRouteDuplicated(42), ErrRouteDuplicated)
	s.ErrorIs(WrapErrSessionClosed(1, "send"), ErrSessionClosed)
	s.ErrorIs(WrapErrServiceUnavailable("dial failed"), ErrServiceUnavailable)

	// 存储与参数相关错误。
	s.ErrorIs(WrapErrIoKeyNotFound("wire:1", "failed to read"), ErrIoKeyNotFound)
	s.ErrorIs(WrapErrParameterInvalid("little", "middle", "unknown endian"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad value %d", 3), ErrParameterInvalid)
	s.ErrorIs(WrapErrOperationNotSupported("compress"), ErrOperationNotSupported)
}

func (s *ErrSuite) TestWrapIoKeepsCause() {
	err := WrapErrIo(io.ErrUnexpectedEOF)
	s.ErrorIs(err, ErrIo)
	s.ErrorIs(err, io.ErrUnexpectedEOF)
	s.NotErrorIs(err, ErrInvalidLength)
	s.Contains(err.Error(), io.ErrUnexpectedEOF.Error())
	s.True(IsRetryableErr(err))
	s.Nil(WrapErrIo(nil))
}

func (s *ErrSuite) TestRawValue() {
	raw, ok := RawValue(WrapErrInvalidEnumVariant(2))
	s.True(ok)
	s.Equal(uint64(2), raw)

	raw, ok = RawValue(errors.Wrap(WrapErrInvalidLength(99), "outer"))
	s.True(ok)
	s.Equal(uint64(99), raw)

	raw, ok = RawValue(WrapErrInvalidChar(0x110000))
	s.True(ok)
	s.Equal(uint32(0x110000), raw)

	_, ok = RawValue(ErrIo)
	s.False(ok)
	_, ok = RawValue(io.EOF)
	s.False(ok)
}

func (s *ErrSuite) TestKind() {
	s.Equal("invalid_enum_variant", Kind(WrapErrInvalidEnumVariant(9)))
	s.Equal("io", Kind(WrapErrIo(io.EOF)))
	s.Equal("canceled", Kind(context.Canceled))
	s.Equal("timeout", Kind(context.DeadlineExceeded))
	s.Equal("unexpected", Kind(io.EOF))
	s.Equal("", Kind(nil))
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(InputError, GetErrorType(WrapErrInvalidLength(1)))
	s.Equal(SystemError, GetErrorType(WrapErrIo(io.EOF)))
	s.Equal(SystemError, GetErrorType(io.EOF))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func (s *ErrSuite) TestCombineCode() {
	err := Combine(WrapErrRouteNotFound(10), WrapErrInvalidLength(1))
	s.Equal(Code(ErrInvalidLength), Code(err))
}

func (s *ErrSuite) TestCanceledOrTimeout() {
	s.True(IsCanceledOrTimeout(errors.Wrap(context.Canceled, "dial")))
	s.True(IsCanceledOrTimeout(context.DeadlineExceeded))
	s.False(IsCanceledOrTimeout(ErrIo))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
