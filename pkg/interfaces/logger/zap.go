package logger

import "go.uber.org/zap"

// Zap forwards log lines to a *zap.Logger.
type Zap struct {
	l *zap.Logger
}

var _ Logger = (*Zap)(nil)

// NewZap wraps the provided zap logger. A nil logger yields zap.NewNop.
func NewZap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{l: l}
}

// Unwrap exposes the underlying zap logger.
func (z *Zap) Unwrap() *zap.Logger { return z.l }

func (z *Zap) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return &Zap{l: z.l.With(toZap(fields)...)}
}

func (z *Zap) Debug(msg string, fields ...Field) { z.l.Debug(msg, toZap(fields)...) }
func (z *Zap) Info(msg string, fields ...Field)  { z.l.Info(msg, toZap(fields)...) }
func (z *Zap) Warn(msg string, fields ...Field)  { z.l.Warn(msg, toZap(fields)...) }
func (z *Zap) Error(msg string, fields ...Field) { z.l.Error(msg, toZap(fields)...) }

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
