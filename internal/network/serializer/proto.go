package serializer

import (
	"google.golang.org/protobuf/proto"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// ProtoSerializer 使用 Protobuf 进行二进制序列化。
//
// 注意：传入/传出的对象必须实现 proto.Message。
type ProtoSerializer struct{}

var _ Serializer = (*ProtoSerializer)(nil)

func (ProtoSerializer) Name() string { return NameProto }

func (ProtoSerializer) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("serializer: ProtoSerializer requires proto.Message, got %T", v)
	}
	return proto.Marshal(msg)
}

func (ProtoSerializer) Unmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return merr.WrapErrParameterInvalidMsg("serializer: ProtoSerializer requires proto.Message, got %T", v)
	}
	return proto.Unmarshal(data, msg)
}
