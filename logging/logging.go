// Package logging wires zap with rotating log files and hands out
// per-component loggers.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field keys shared by the recorder packages.
const (
	KeyComponent = "component"
	KeySession   = "session"
	KeyMode      = "mode"
	KeyPath      = "path"
	KeyPid       = "pid"
	KeyTool      = "tool"
	KeyError     = "error"
)

const (
	appLogName   = "meeting-notes.log"
	errorLogName = "errors.log"
)

// switchCore lets component loggers created at package init pick up the
// core installed later by Init.
type switchCore struct {
	current *atomic.Pointer[zapcore.Core]
	fields  []zapcore.Field
}

func (c *switchCore) base() zapcore.Core {
	core := *c.current.Load()
	if len(c.fields) > 0 {
		core = core.With(c.fields)
	}
	return core
}

func (c *switchCore) Enabled(lvl zapcore.Level) bool {
	return (*c.current.Load()).Enabled(lvl)
}

func (c *switchCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &switchCore{current: c.current, fields: merged}
}

func (c *switchCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *switchCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.base().Write(ent, fields)
}

func (c *switchCore) Sync() error {
	return (*c.current.Load()).Sync()
}

var (
	current atomic.Pointer[zapcore.Core]
	root    *zap.Logger
)

func init() {
	core := consoleCore(os.Stderr, zapcore.InfoLevel, "text")
	current.Store(&core)
	root = zap.New(&switchCore{current: &current})
}

// Init installs the application logger. Console output goes to stderr at
// the configured level; when dir is non-empty everything is also written to
// a rotated meeting-notes.log and errors to errors.log inside dir.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
func Init(level, format, dir string) error {
	lvl := ParseLevel(level)
	cores := []zapcore.Core{consoleCore(os.Stderr, lvl, format)}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		cores = append(cores,
			fileCore(filepath.Join(dir, appLogName), zapcore.DebugLevel),
			fileCore(filepath.Join(dir, errorLogName), zapcore.ErrorLevel),
		)
	}

	core := zapcore.NewTee(cores...)
	current.Store(&core)
	return nil
}

// InitWriter installs a single-writer logger. Used by tests and by commands
// that log to a caller-provided stream.
func InitWriter(level, format string, w io.Writer) {
	core := consoleCore(zapcore.AddSync(w), ParseLevel(level), format)
	current.Store(&core)
}

// L returns a logger tagged with the component name.
func L(component string) *zap.SugaredLogger {
	return root.With(zap.String(KeyComponent, component)).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = root.Sync()
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleCore(w zapcore.WriteSyncer, lvl zapcore.Level, format string) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(format, "json") {
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewCore(enc, w, lvl)
}

func fileCore(path string, lvl zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), lvl)
}
