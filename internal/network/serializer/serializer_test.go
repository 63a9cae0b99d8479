package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

type SerializerSuite struct {
	suite.Suite
}

func (s *SerializerSuite) TestWire() {
	ser, err := New(NameWire, wire.DefaultConfig().WithEndian(wire.BigEndian))
	s.Require().NoError(err)
	s.Equal(NameWire, ser.Name())

	in := wire.Tuple2[wire.U16, wire.Str]{First: 0x0102, Second: "x"}
	data, err := ser.Marshal(in)
	s.Require().NoError(err)
	s.Equal([]byte{1, 2}, data[:2])

	var out wire.Tuple2[wire.U16, wire.Str]
	s.Require().NoError(ser.Unmarshal(data, &out))
	s.Equal(in, out)

	_, err = ser.Marshal(struct{}{})
	s.ErrorIs(err, merr.ErrParameterInvalid)
	s.ErrorIs(ser.Unmarshal(data, &struct{}{}), merr.ErrNotDecodable)
}

func (s *SerializerSuite) TestJSON() {
	ser, err := New(NameJSON, wire.DefaultConfig())
	s.Require().NoError(err)

	type msg struct {
		Text string `json:"text"`
	}
	data, err := ser.Marshal(msg{Text: "hi"})
	s.Require().NoError(err)
	s.JSONEq(`{"text":"hi"}`, string(data))

	var out msg
	s.Require().NoError(ser.Unmarshal(data, &out))
	s.Equal("hi", out.Text)
}

func (s *SerializerSuite) TestProto() {
	ser, err := New(NameProto, wire.DefaultConfig())
	s.Require().NoError(err)

	data, err := ser.Marshal(wrapperspb.String("hello"))
	s.Require().NoError(err)

	out := &wrapperspb.StringValue{}
	s.Require().NoError(ser.Unmarshal(data, out))
	s.Equal("hello", out.GetValue())

	_, err = ser.Marshal("not a message")
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func TestSerializer(t *testing.T) {
	suite.Run(t, new(SerializerSuite))
}

func TestUnknownSerializer(t *testing.T) {
	_, err := New("xml", wire.DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
