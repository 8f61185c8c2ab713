// internal/logger/logger.go
//
// Structured logger (Zap + Lumberjack).
//
// Context
// -------
// The server always logs to stdout with the console encoder.  When a log
// directory is configured (`logging.dir` / LOG_DIR) the same events are
// also written as JSON to `<dir>/YYYY-MM-DD.log`.  Rotation,
// compression, and retention are handled by Lumberjack.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Level: "info", Dir: "/var/log/autoinstall"})
//	if err != nil { … }
//	log.Infow("document served", "vm", name)
//
// Notes
// -----
// • ISO-8601 timestamps and lowercase levels on both sinks.
// • The logger is installed as the zap global, so zap.S() works in
//   middleware without plumbing.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level and sinks.  Console defaults to os.Stdout.
type Options struct {
	Level   string
	Dir     string
	Console io.Writer
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}

// New returns a *zap.SugaredLogger and installs it via zap.ReplaceGlobals.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if opts.Level != "" {
		lv, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = lv
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig()),
			zapcore.AddSync(console),
			level,
		),
	}
	errSink := zapcore.AddSync(os.Stderr)

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		fileSink := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, time.Now().Format("2006-01-02")+".log"),
			MaxSize:    50, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig()),
			zapcore.AddSync(fileSink),
			level,
		))
		errSink = zapcore.AddSync(fileSink)
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(errSink),
	).Sugar()

	zap.ReplaceGlobals(z.Desugar())

	z.Debugw("logger online", "level", level.String(), "dir", opts.Dir)
	return z, nil
}
