package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// NewFileLogger creates a logger that writes to a file
func NewFileLogger(filename, level string) (*ZapLogger, error) {
	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	l := NewWithWriter(file, level)
	l.closer = file
	return l, nil
}

// NewMultiWriterLogger creates a logger that writes to multiple outputs
func NewMultiWriterLogger(level string, writers ...io.Writer) *ZapLogger {
	return NewWithWriter(io.MultiWriter(writers...), level)
}

// DefaultLogger returns a pre-configured logger with reasonable defaults
func DefaultLogger() *ZapLogger {
	return New("INFO")
}

type ctxKey struct{}

// FromContext extracts logger from context or returns a default one
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}
