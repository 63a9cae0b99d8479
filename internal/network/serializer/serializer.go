package serializer

import (
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// Serializer 抽象了网络层“对象 <-> 字节流”的序列化能力。
//
// 默认使用 wire 格式，也支持 JSON 与 Protobuf，调用方通过接口注入具体实现。
type Serializer interface {
	// Name 返回序列化方案名称，用于配置与监控标签。
	Name() string

	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象。
	//
	// v 通常为指针类型，用于接收解码结果。
	Unmarshal(data []byte, v any) error
}

const (
	NameWire  = "wire"
	NameJSON  = "json"
	NameProto = "proto"
)

// New 按名称创建序列化器，cfg 仅对 wire 生效。
func New(name string, cfg wire.Config) (Serializer, error) {
	switch name {
	case NameWire, "":
		return WireSerializer{Config: cfg}, nil
	case NameJSON:
		return JSONSerializer{}, nil
	case NameProto:
		return ProtoSerializer{}, nil
	default:
		return nil, merr.WrapErrParameterInvalid("wire|json|proto", name, "unknown serializer")
	}
}
