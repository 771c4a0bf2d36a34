package logger

// Field is a structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// Err tags err under the conventional "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Logger is what stores, services and the HTTP layer log through. NewZap
// adapts a zap logger; Nop discards everything.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type Nop struct{}

var _ Logger = (*Nop)(nil)

func (n *Nop) With(...Field) Logger  { return n }
func (n *Nop) Debug(string, ...Field) {}
func (n *Nop) Info(string, ...Field)  {}
func (n *Nop) Warn(string, ...Field)  {}
func (n *Nop) Error(string, ...Field) {}
