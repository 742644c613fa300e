package console

import (
	"devconsole/internal/capture"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WrapCore tees next into the console: every entry written to the returned
// core is also captured, with the message as the first argument and the
// fields as a second, object-valued argument.
func (c *Console) WrapCore(next zapcore.Core) zapcore.Core {
	return zapcore.NewTee(next, &captureCore{console: c, LevelEnabler: zapcore.DebugLevel})
}

// WrapLogger returns logger with its core wrapped by WrapCore.
func (c *Console) WrapLogger(logger *zap.Logger) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(c.WrapCore))
}

type captureCore struct {
	zapcore.LevelEnabler
	console *Console
	fields  []zapcore.Field
}

func (cc *captureCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(cc.fields)+len(fields))
	merged = append(merged, cc.fields...)
	merged = append(merged, fields...)
	return &captureCore{console: cc.console, LevelEnabler: cc.LevelEnabler, fields: merged}
}

func (cc *captureCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if cc.Enabled(ent.Level) {
		return ce.AddCore(ent, cc)
	}
	return ce
}

func (cc *captureCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	args := []any{ent.Message}
	if obj := fieldObject(cc.fields, fields); len(obj) > 0 {
		args = append(args, obj)
	}
	if ent.LoggerName != "" {
		args = append([]any{"[" + ent.LoggerName + "]"}, args...)
	}
	cc.console.Append(levelKind(ent.Level), args...)
	return nil
}

func (cc *captureCore) Sync() error { return nil }

// fieldObject encodes fields into a map. Reflected and error fields keep
// their live values so they can be inspected.
func fieldObject(groups ...[]zapcore.Field) map[string]any {
	enc := zapcore.NewMapObjectEncoder()
	for _, fields := range groups {
		for _, f := range fields {
			switch f.Type {
			case zapcore.ErrorType, zapcore.StringerType:
				enc.Fields[f.Key] = f.Interface
			default:
				f.AddTo(enc)
			}
		}
	}
	return enc.Fields
}

func levelKind(l zapcore.Level) capture.Kind {
	switch {
	case l <= zapcore.DebugLevel:
		return capture.KindDebug
	case l == zapcore.InfoLevel:
		return capture.KindInfo
	case l == zapcore.WarnLevel:
		return capture.KindWarn
	}
	return capture.KindError
}
