package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger shared by the service and its components.
// - printf-style Debug/Info/Warn/Error/Fatal variants and Init(level)
// - backed by zap; Named returns a structured component logger

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu       sync.RWMutex
	level    Level = LevelInfo
	atom           = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoding       = "console"
	out      zapcore.WriteSyncer = zapcore.Lock(zapcore.AddSync(os.Stdout))
	base     *zap.Logger         = build(out, encoding)
	sugar    *zap.SugaredLogger  = base.Sugar()
)

func build(w zapcore.WriteSyncer, enc string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if enc == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(encoder, w, atom))
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	s := strings.ToLower(strings.TrimSpace(l))
	switch s {
	case "debug":
		level = LevelDebug
		atom.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level = LevelWarn
		atom.SetLevel(zapcore.WarnLevel)
	case "error":
		level = LevelError
		atom.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level = LevelFatal
		atom.SetLevel(zapcore.FatalLevel)
	default:
		level = LevelInfo
		atom.SetLevel(zapcore.InfoLevel)
	}
}

// SetEncoding switches between "console" (default) and "json" output.
func SetEncoding(enc string) {
	mu.Lock()
	defer mu.Unlock()
	enc = strings.ToLower(strings.TrimSpace(enc))
	if enc != "json" {
		enc = "console"
	}
	encoding = enc
	base = build(out, encoding)
	sugar = base.Sugar()
}

// SetOutput redirects log output; used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = zapcore.Lock(zapcore.AddSync(w))
	base = build(out, encoding)
	sugar = base.Sugar()
}

// Named returns a structured logger for a component.
func Named(name string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Named(name)
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, v ...interface{}) {
	if !shouldLog(LevelDebug) {
		return
	}
	current().Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	current().Infof(format, v...)
}

func Warnf(format string, v ...interface{}) {
	if !shouldLog(LevelWarn) {
		return
	}
	current().Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	if !shouldLog(LevelError) {
		return
	}
	current().Errorf(format, v...)
}

// Fatalf logs and exits. Only main may call it.
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	current().Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}

// Configure applies the level and encoding from the loaded configuration.
// Until it runs the logger writes console output at info level.
func Configure(level, encoding string) {
	SetEncoding(encoding)
	Init(level)
}
