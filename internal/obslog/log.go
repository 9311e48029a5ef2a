// Package obslog adapts the core runtime's logging calls onto
// go.uber.org/zap, with the same Logger shape used elsewhere in this
// codebase: Debugf/Infof/Warnf/Errorf/Fatalf, plus DPanicf.
package obslog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface every core package depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	// Fatalf logs and terminates the process. Reserved for conditions
	// the core considers unrecoverable corruption (see DPanicf).
	Fatalf(format string, args ...interface{})
	// DPanicf logs at error level in production, and panics when the
	// logger was built with Development(); used for the refcount
	// logic errors this runtime treats as fatal.
	DPanicf(format string, args ...interface{})
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// Option configures a Logger built by New.
type Option func(*zap.Config)

// Development switches the logger into development mode, where
// DPanicf panics instead of only logging.
func Development() Option {
	return func(c *zap.Config) { c.Development = true }
}

// New builds a Logger writing JSON-encoded records to w at or above
// level.
func New(level zapcore.Level, w io.Writer, opts ...Option) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	for _, opt := range opts {
		opt(&cfg)
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(w),
		cfg.Level,
	)
	opts2 := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.Development {
		opts2 = append(opts2, zap.Development())
	}
	l := zap.New(core, opts2...)
	return &zapLogger{s: l.Sugar()}, nil
}

// Nop returns a Logger that discards everything, for tests that don't
// care about log output.
func Nop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }
func (l *zapLogger) Fatalf(format string, args ...interface{}) { l.s.Fatalf(format, args...) }
func (l *zapLogger) DPanicf(format string, args ...interface{}) {
	l.s.DPanicf(format, args...)
}
