package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Environment string
	Level       string
	// File enables a rotated log file next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu     sync.RWMutex
	sugar  = zap.NewNop().Sugar()
	atomic = zap.NewAtomicLevel()
)

// Init builds the process logger. Production writes JSON, development writes
// colored console lines.
func Init(opts Options) *zap.SugaredLogger {
	atomic.SetLevel(parseLevel(opts.Level, opts.Environment))

	var encoder zapcore.Encoder
	if isProduction(opts.Environment) {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomic),
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rotator), atomic))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()

	mu.Lock()
	sugar = l
	mu.Unlock()

	return l.WithOptions(zap.AddCallerSkip(-1))
}

// L returns the process logger for injection into components.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.WithOptions(zap.AddCallerSkip(-1))
}

func SetLevel(level string) {
	atomic.SetLevel(parseLevel(level, ""))
}

func Debug(msg string, keysAndValues ...any) { current().Debugw(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { current().Infow(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { current().Warnw(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { current().Errorw(msg, keysAndValues...) }
func Fatal(msg string, keysAndValues ...any) { current().Fatalw(msg, keysAndValues...) }

func Sync() {
	_ = current().Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func isProduction(env string) bool {
	env = strings.ToLower(env)
	return env == "production" || env == "prod"
}

func parseLevel(level, env string) zapcore.Level {
	if level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(strings.ToLower(level))); err == nil {
			return l
		}
	}
	if isProduction(env) {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
