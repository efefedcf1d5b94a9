// Package logx provides the logging interface used throughout godcp and a
// small default implementation on the standard log package.
package logx

import (
	"log"
	"os"
)

// Logger defines the interface for logging. All methods accept a printf
// style format string.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// DefaultLogger provides a basic logger implementation writing to stderr.
type DefaultLogger struct {
	logger *log.Logger
	debug  bool
}

// NewDefaultLogger creates a new logger writing to stderr with standard
// flags. Debug output is suppressed.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[godcp] ", log.LstdFlags|log.Lmsgprefix),
	}
}

// NewDebugLogger creates a stderr logger with debug output enabled.
func NewDebugLogger() *DefaultLogger {
	l := NewDefaultLogger()
	l.debug = true
	return l
}

func (l *DefaultLogger) Debug(format string, v ...interface{}) {
	if l.debug {
		l.logger.Printf("DEBUG: "+format, v...)
	}
}

func (l *DefaultLogger) Info(format string, v ...interface{}) {
	l.logger.Printf("INFO: "+format, v...)
}

func (l *DefaultLogger) Warn(format string, v ...interface{}) {
	l.logger.Printf("WARN: "+format, v...)
}

func (l *DefaultLogger) Error(format string, v ...interface{}) {
	l.logger.Printf("ERROR: "+format, v...)
}

// NilLogger discards everything. Useful in tests.
type NilLogger struct{}

// NewNilLogger returns a logger that discards all output.
func NewNilLogger() *NilLogger { return &NilLogger{} }

func (*NilLogger) Debug(string, ...interface{}) {}
func (*NilLogger) Info(string, ...interface{})  {}
func (*NilLogger) Warn(string, ...interface{})  {}
func (*NilLogger) Error(string, ...interface{}) {}
