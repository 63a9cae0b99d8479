package log

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameSession   = "session"
	FieldNameEndian    = "endian"
	FieldNameOp        = "op"
	FieldNameSize      = "size"
	FieldNameStage     = "stage"
	FieldNameType      = "type"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

func FieldSession(id uint64) zap.Field {
	return zap.Uint64(FieldNameSession, id)
}

// FieldEndian 记录编解码使用的字节序。
func FieldEndian(endian fmt.Stringer) zap.Field {
	return zap.Stringer(FieldNameEndian, endian)
}

func FieldOp(op uint32) zap.Field {
	return zap.Uint32(FieldNameOp, op)
}

func FieldSize(size int) zap.Field {
	return zap.Int(FieldNameSize, size)
}

// FieldStage 记录出错时所处的处理阶段，如 encode、frame、dispatch。
func FieldStage(stage string) zap.Field {
	return zap.String(FieldNameStage, stage)
}

// FieldType 记录参与编解码的 Go 类型名。
func FieldType(name string) zap.Field {
	return zap.String(FieldNameType, name)
}

