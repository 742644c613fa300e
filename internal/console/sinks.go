package console

import (
	"devconsole/internal/capture"

	"go.uber.org/zap"
)

// Sink is an original logging entry point.
type Sink func(args ...any)

// Sinks holds one original sink per log kind. Result entries have no sink.
type Sinks struct {
	Log   Sink
	Warn  Sink
	Error Sink
	Info  Sink
	Debug Sink
}

// For returns the sink for kind, or nil.
func (s Sinks) For(kind capture.Kind) Sink {
	switch kind {
	case capture.KindLog:
		return s.Log
	case capture.KindWarn:
		return s.Warn
	case capture.KindError:
		return s.Error
	case capture.KindInfo:
		return s.Info
	case capture.KindDebug:
		return s.Debug
	}
	return nil
}

// NewZapSinks writes every kind to logger. The logger must not itself be
// wrapped by WrapCore, or each call would be captured twice.
func NewZapSinks(logger *zap.Logger) Sinks {
	sugar := logger.WithOptions(zap.AddCallerSkip(2)).Sugar()
	return Sinks{
		Log:   sugar.Infoln,
		Warn:  sugar.Warnln,
		Error: sugar.Errorln,
		Info:  sugar.Infoln,
		Debug: sugar.Debugln,
	}
}
