// Package kernellog is the structured logging facade shared by every
// kernel module: a small Logger interface plus a package-level
// injectable instance, so the core itself never binds to a specific
// logging backend. The built-in default is backed by
// github.com/joeycumines/logiface with the github.com/joeycumines/stumpy
// JSON encoder.
package kernellog

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Field is a single structured logging key/value pair.
type Field struct {
	Key   string
	Value any
}

// F is a convenience constructor for Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger is the minimal structured logging surface every kernel module
// depends on.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

var global struct {
	sync.RWMutex
	logger Logger
}

// SetLogger installs the process-wide default logger used by modules that
// were not constructed with an explicit logger.
func SetLogger(l Logger) {
	global.Lock()
	defer global.Unlock()
	global.logger = l
}

// Get returns the current global logger, defaulting to the stumpy-backed
// implementation the first time it's requested.
func Get() Logger {
	global.RLock()
	l := global.logger
	global.RUnlock()
	if l != nil {
		return l
	}
	return defaultLogger()
}

var (
	defaultOnce sync.Once
	defaultInst Logger
)

func defaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultInst = &stumpyLogger{
			logger: stumpy.L.New(stumpy.L.WithStumpy()),
		}
	})
	return defaultInst
}

// stumpyLogger adapts a logiface.Logger[*stumpy.Event] to Logger.
type stumpyLogger struct {
	logger *logiface.Logger[*stumpy.Event]
}

func (s *stumpyLogger) log(b *logiface.Builder[*stumpy.Event], msg string, fields []Field) {
	for _, f := range fields {
		b = b.Any(f.Key, f.Value)
	}
	b.Log(msg)
}

func (s *stumpyLogger) Debug(msg string, fields ...Field) { s.log(s.logger.Debug(), msg, fields) }
func (s *stumpyLogger) Info(msg string, fields ...Field)  { s.log(s.logger.Info(), msg, fields) }
func (s *stumpyLogger) Warn(msg string, fields ...Field)  { s.log(s.logger.Warning(), msg, fields) }
func (s *stumpyLogger) Error(msg string, fields ...Field) { s.log(s.logger.Err(), msg, fields) }

// Noop is a Logger that discards everything; useful in tests that would
// otherwise be noisy.
type Noop struct{}

func (Noop) Debug(string, ...Field) {}
func (Noop) Info(string, ...Field)  {}
func (Noop) Warn(string, ...Field)  {}
func (Noop) Error(string, ...Field) {}
