// Package json 统一 JSON 编解码实现，底层使用 bytedance/sonic 的标准兼容配置。
package json

import (
	gojson "encoding/json"

	"github.com/bytedance/sonic"
)

var (
	api = sonic.ConfigStd

	Marshal       = api.Marshal
	Unmarshal     = api.Unmarshal
	MarshalIndent = api.MarshalIndent
	NewDecoder    = api.NewDecoder
	NewEncoder    = api.NewEncoder
	Valid         = api.Valid
)

type (
	Number     = gojson.Number
	RawMessage = gojson.RawMessage
	Marshaler  = gojson.Marshaler
)
