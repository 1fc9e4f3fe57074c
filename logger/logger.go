// Package logger builds the zap loggers used by the decoder tools.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the log outputs.
type Options struct {
	// Level is one of debug, info, warn or error. Unknown values mean debug.
	Level string `json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	// Dir receives the rotated log files. Empty disables file output.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
	// Name is the base name of the log files.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Console enables the human-readable stderr output.
	Console bool `json:"console" yaml:"console" mapstructure:"console"`
	// MaxSizeMB is the size at which a log file is rotated.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb" validate:"gte=0"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"`
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days" validate:"gte=0"`
}

// DefaultOptions logs info and above to the console only.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Name:       "posedecode",
		Console:    true,
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 7,
	}
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.DebugLevel
	}
}

func formatEncodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf("%d%02d%02d_%02d%02d%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "trace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     formatEncodeTime,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func rotatingWriter(path string, opts Options) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	})
}

// New builds a logger from opts.
//
// With a Dir set, JSON records at the configured level go to <name>.log and
// errors are duplicated into error_<name>.log, both rotated by lumberjack.
// The returned level can be changed at runtime.
//
// Arguments:
//   - opts: Output configuration.
//
// Returns:
//   - *zap.Logger: The logger. A no-op logger when no output is enabled.
//   - zap.AtomicLevel: The adjustable level shared by all outputs.
//   - error: If the log directory cannot be created.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	if opts.Name == "" {
		opts.Name = DefaultOptions().Name
	}

	var cores []zapcore.Core
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, level, errors.Wrapf(err, "create log dir %s", opts.Dir)
		}

		errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		})
		cores = append(cores,
			zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig()),
				rotatingWriter(filepath.Join(opts.Dir, opts.Name+".log"), opts),
				level,
			),
			zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig()),
				rotatingWriter(filepath.Join(opts.Dir, "error_"+opts.Name+".log"), opts),
				errorLevel,
			),
		)
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), level, nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), level, nil
}
