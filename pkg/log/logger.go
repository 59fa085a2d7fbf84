package log

import (
	"io"
	"os"
	"strings"

	ipfslog "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// systemName is the go-log subsystem every fastlane logger registers under.
const systemName = "fastlane"

// Logger defines the logging interface used across fastlane packages.
type Logger interface {
	// Info takes a message and a set of key/value pairs and logs with level INFO.
	// The key of the tuple must be a string.
	Info(msg string, keyVals ...any)

	// Warn takes a message and a set of key/value pairs and logs with level WARN.
	// The key of the tuple must be a string.
	Warn(msg string, keyVals ...any)

	// Error takes a message and a set of key/value pairs and logs with level ERR.
	// The key of the tuple must be a string.
	Error(msg string, keyVals ...any)

	// Debug takes a message and a set of key/value pairs and logs with level DEBUG.
	// The key of the tuple must be a string.
	Debug(msg string, keyVals ...any)

	// With returns a new wrapped logger with additional context provided by a set.
	With(keyVals ...any) Logger

	// Impl returns the underlying logger implementation.
	Impl() any
}

// zapLogger wraps an ipfs/go-log ZapEventLogger to implement Logger.
type zapLogger struct {
	logger *ipfslog.ZapEventLogger
}

// Config holds logger configuration.
type Config struct {
	Level      zapcore.Level
	EnableJSON bool
	Trace      bool
}

// Option defines configuration options for the logger.
type Option func(*Config)

// OutputJSONOption enables JSON output format.
func OutputJSONOption() Option {
	return func(c *Config) {
		c.EnableJSON = true
	}
}

// LevelOption sets the log level from its textual name (debug, info, warn, error).
// Unknown names fall back to info.
func LevelOption(level string) Option {
	return func(c *Config) {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			l = zapcore.InfoLevel
		}
		c.Level = l
	}
}

// TraceOption enables or disables stack traces on error logs.
func TraceOption(enabled bool) Option {
	return func(c *Config) {
		c.Trace = enabled
	}
}

// NewLogger creates a new logger that writes to the given destination.
// A nil destination or os.Stdout routes through the shared go-log registry.
func NewLogger(dst io.Writer, options ...Option) Logger {
	config := &Config{
		Level: zapcore.InfoLevel,
	}
	for _, opt := range options {
		opt(config)
	}

	if dst != nil && dst != os.Stdout {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		var encoder zapcore.Encoder
		if config.EnableJSON {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}

		opts := []zap.Option{}
		if config.Trace {
			opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
		}
		core := zapcore.NewCore(encoder, zapcore.AddSync(dst), config.Level)
		return wrap(zap.New(core, opts...).Sugar())
	}

	logger := ipfslog.Logger(systemName)
	_ = ipfslog.SetLogLevel(systemName, config.Level.String())
	return &zapLogger{logger: logger}
}

// NewNopLogger creates a no-op logger.
func NewNopLogger() Logger {
	return wrap(zap.New(zapcore.NewNopCore()).Sugar())
}

// NewTestLogger creates a logger that writes through the test's log output.
func NewTestLogger(t zaptest.TestingT) Logger {
	return wrap(zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel)).Sugar())
}

func wrap(sugared *zap.SugaredLogger) *zapLogger {
	return &zapLogger{
		logger: &ipfslog.ZapEventLogger{SugaredLogger: *sugared},
	}
}

func (z *zapLogger) Info(msg string, keyVals ...any) {
	z.logger.Infow(msg, keyVals...)
}

func (z *zapLogger) Warn(msg string, keyVals ...any) {
	z.logger.Warnw(msg, keyVals...)
}

func (z *zapLogger) Error(msg string, keyVals ...any) {
	z.logger.Errorw(msg, keyVals...)
}

func (z *zapLogger) Debug(msg string, keyVals ...any) {
	z.logger.Debugw(msg, keyVals...)
}

func (z *zapLogger) With(keyVals ...any) Logger {
	return wrap(z.logger.With(keyVals...))
}

func (z *zapLogger) Impl() any {
	return z.logger
}
