package log

import (
	"context"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	_ WithLogger   = &Binder{}
	_ LoggerBinder = &Binder{}
)

type WithLogger interface {
	Logger() *MLogger
}

type LoggerBinder interface {
	SetLogger(logger *MLogger)
}

// Binder 嵌入到会话、连接等组件中，保存组件自己的 Logger。
type Binder struct {
	logger atomic.Pointer[MLogger]
}

func (w *Binder) SetLogger(logger *MLogger) {
	w.logger.Store(logger)
}

// Bind 以 ctx 上的 Logger 为基础，附加组件名与额外字段后绑定。
func (w *Binder) Bind(ctx context.Context, component string, fields ...zap.Field) *MLogger {
	l := Ctx(ctx).With(append([]zap.Field{FieldComponent(component)}, fields...)...)
	w.logger.Store(l)
	return l
}

// Logger 返回绑定的 Logger，未绑定时退回全局 Logger。
func (w *Binder) Logger() *MLogger {
	if l := w.logger.Load(); l != nil {
		return l
	}
	return With()
}
