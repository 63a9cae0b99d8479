package serializer

import (
	"context"
	"fmt"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// WireSerializer 使用 wire 二进制格式编解码。
//
// 注意：Marshal 的对象必须实现 wire.Encoder，Unmarshal 的目标必须实现 wire.Decoder。
type WireSerializer struct {
	Config wire.Config
}

var _ Serializer = WireSerializer{}

func (WireSerializer) Name() string { return NameWire }

func (s WireSerializer) Marshal(v any) ([]byte, error) {
	enc, ok := v.(wire.Encoder)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("serializer: WireSerializer requires wire.Encoder, got %T", v)
	}
	return s.Config.Encode(context.Background(), enc)
}

func (s WireSerializer) Unmarshal(data []byte, v any) error {
	dec, ok := v.(wire.Decoder)
	if !ok {
		return merr.WrapErrNotDecodable(fmt.Sprintf("%T", v))
	}
	return s.Config.Decode(context.Background(), data, dec)
}
