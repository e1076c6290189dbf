package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hansupo/shad-label/internal/platform/requestctx"
)

const defaultLogLevel = "info"

type loggerOptions struct {
	level    string
	encoding string
	output   []string
}

// LoggerOption adjusts NewLogger.
type LoggerOption func(*loggerOptions)

// WithLevel overrides LOG_LEVEL.
func WithLevel(level string) LoggerOption {
	return func(o *loggerOptions) {
		if strings.TrimSpace(level) != "" {
			o.level = level
		}
	}
}

// WithConsoleEncoding switches to the human-readable console encoder used by labelctl.
func WithConsoleEncoding() LoggerOption {
	return func(o *loggerOptions) { o.encoding = "console" }
}

// WithOutputPaths redirects log output, e.g. to stderr so command output stays clean.
func WithOutputPaths(paths ...string) LoggerOption {
	return func(o *loggerOptions) {
		if len(paths) > 0 {
			o.output = paths
		}
	}
}

// NewLogger builds a zap logger emitting structured JSON with Cloud Logging compatible keys.
func NewLogger(opts ...LoggerOption) (*zap.Logger, error) {
	options := loggerOptions{
		level:    os.Getenv("LOG_LEVEL"),
		encoding: "json",
		output:   []string{"stdout"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(options.level)))); err != nil || strings.TrimSpace(options.level) == "" {
		_ = level.UnmarshalText([]byte(defaultLogLevel))
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "logger",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		StacktraceKey:  "stacktrace",
	}

	cfg := zap.Config{
		Level:             level,
		Encoding:          options.encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       options.output,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	return cfg.Build()
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// FromContext returns the request logger, defaulting to a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	return requestctx.Logger(ctx)
}

// ServiceLogger adapts zap to the event hook services accept. The request logger on ctx wins over
// base so service events carry request_id and trace_id.
func ServiceLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if base == nil {
		base = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = base
		}
		zfields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zfields = append(zfields, zap.Any(key, value))
		}
		if _, failed := fields["error"]; failed {
			logger.Warn(event, zfields...)
			return
		}
		logger.Info(event, zfields...)
	}
}

// PrintfAdapter adapts zap to printf-style logging interfaces.
type PrintfAdapter struct {
	logger *zap.SugaredLogger
}

func NewPrintfAdapter(logger *zap.Logger) PrintfAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return PrintfAdapter{logger: logger.Sugar()}
}

func (a PrintfAdapter) Printf(format string, args ...any) {
	a.logger.Infof(format, args...)
}

// WithRequestFields returns logger extended with request-scoped fields.
func WithRequestFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(fields...)
}
