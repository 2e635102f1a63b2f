package logger

import (
	"io"
	"maps"
	"slices"

	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a ZapLogger with the default configuration and the given level.
func New(level string) *ZapLogger {
	config := DefaultConfig()
	config.Level = level
	return NewWithConfig(config)
}

// NewWithConfig builds a ZapLogger from the logger section of the config.
func NewWithConfig(config *types.LoggerConfig) *ZapLogger {
	if config.Output == "file" && config.FilePath == "" {
		config.FilePath = getDefaultLogPath()
	}

	writer, closer := createWriter(config)
	l := &ZapLogger{
		config: config,
		level:  zap.NewAtomicLevelAt(ParseLogLevel(config.Level).zapLevel()),
		closer: closer,
	}
	l.sugar = l.build(writer)
	return l
}

// NewWithWriter creates a logger writing to w. Colors are disabled.
func NewWithWriter(w io.Writer, level string) *ZapLogger {
	config := DefaultConfig()
	config.Level = level
	config.Output = "writer"
	config.Colors = false
	l := &ZapLogger{
		config: config,
		level:  zap.NewAtomicLevelAt(ParseLogLevel(level).zapLevel()),
	}
	l.sugar = l.build(w)
	return l
}

func (l *ZapLogger) build(w io.Writer) *zap.SugaredLogger {
	var sink zapcore.WriteSyncer = zapcore.AddSync(w)
	if l.config.Async {
		l.buffered = &zapcore.BufferedWriteSyncer{
			WS:   sink,
			Size: l.config.BufferSize * 1024,
		}
		sink = l.buffered
	}

	opts := []zap.Option{}
	if l.config.ShowCaller {
		// Skip the Logger interface wrapper frame.
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	core := zapcore.NewCore(l.encoder(), sink, l.level)
	return zap.New(core, opts...).Sugar().With(l.fields...)
}

func (l *ZapLogger) encoder() zapcore.Encoder {
	if l.config.Format == "json" {
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "timestamp"
		enc.MessageKey = "message"
		enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(enc)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimestampFormat)
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if l.config.Colors && (l.config.Output == "stdout" || l.config.Output == "stderr") {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(enc)
}

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugf(msg, args...)
}

// Info logs an info message
func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infof(msg, args...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnf(msg, args...)
}

// Error logs an error message
func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorf(msg, args...)
}

// Fatal logs a fatal message and exits the program
func (l *ZapLogger) Fatal(msg string, args ...any) {
	l.sugar.Fatalf(msg, args...)
}

// WithField returns a new logger with an additional field
func (l *ZapLogger) WithField(key string, value any) Logger {
	return l.with(key, value)
}

// WithFields returns a new logger with additional fields.
// Keys are sorted so output is stable.
func (l *ZapLogger) WithFields(fields map[string]any) Logger {
	kv := make([]any, 0, len(fields)*2)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		kv = append(kv, k, fields[k])
	}
	return l.with(kv...)
}

func (l *ZapLogger) with(kv ...any) *ZapLogger {
	child := *l
	child.fields = append(slices.Clip(l.fields), kv...)
	child.sugar = l.sugar.With(kv...)
	// The parent owns the file handle and buffer.
	child.closer = nil
	child.buffered = nil
	return &child
}

// SetLevel changes the log level
func (l *ZapLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level
func (l *ZapLogger) GetLevel() LogLevel {
	return fromZapLevel(l.level.Level())
}

// SetOutput changes the output writer. Entries buffered for the old
// writer are flushed to it first.
func (l *ZapLogger) SetOutput(w io.Writer) {
	if l.buffered != nil {
		_ = l.buffered.Stop()
		l.buffered = nil
	}
	l.sugar = l.build(w)
}

// Sugar exposes the underlying zap logger for libraries that want one.
func (l *ZapLogger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Close flushes buffered entries and closes the log file, if any.
func (l *ZapLogger) Close() error {
	_ = l.sugar.Sync()
	if l.buffered != nil {
		if err := l.buffered.Stop(); err != nil {
			return err
		}
	}
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
