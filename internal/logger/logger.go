package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

/* ------------------------------------------------------------------ *
|  1. Configuration & functional‑options                              |
* -------------------------------------------------------------------*/

type Config struct {
	Level      string
	FilePath   string
	Format     string
	Version    string
	Component  string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

type Option func(*Config)

func WithLevel(lvl string) Option      { return func(c *Config) { c.Level = lvl } }
func WithFormat(fmt string) Option     { return func(c *Config) { c.Format = fmt } }
func WithFile(path string) Option      { return func(c *Config) { c.FilePath = path } }
func WithVersion(v string) Option      { return func(c *Config) { c.Version = v } }
func WithComponent(comp string) Option { return func(c *Config) { c.Component = comp } }
func WithRotation(size, backups, age int) Option {
	return func(c *Config) {
		c.MaxSize, c.MaxBackups, c.MaxAge = size, backups, age
	}
}

/* ------------------------------------------------------------------ *
|  2. Package‑level state                                             |
* -------------------------------------------------------------------*/

var (
	atomicLevel zap.AtomicLevel
	root        *zap.Logger

	active bool
	mu     sync.RWMutex
)

/* ------------------------------------------------------------------ *
|  3. Init / Shutdown                                                 |
* -------------------------------------------------------------------*/

// Init builds the global zap core. Calling Init twice replaces the old core.
func Init(opts ...Option) error {
	cfg := defaultConfig()
	for _, apply := range opts {
		apply(cfg)
	}

	enc, err := buildEncoder(cfg.Format)
	if err != nil {
		return err
	}
	ws, isFile, err := buildWriter(cfg)
	if err != nil {
		return err
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	// Flush previous file writer (if any)
	if active && root != nil && isFile {
		_ = root.Sync()
	}

	atomicLevel = lvl
	root = zap.New(zapcore.NewCore(enc, ws, atomicLevel),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("version", cfg.Version),
			zap.String("app", cfg.Component),
		),
	)
	active = true
	return nil
}

// Replace installs an already built logger as the root, e.g. an observer
// core in tests. The returned func restores the previous state.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prevRoot, prevActive := root, active
	root, active = l, true
	mu.Unlock()

	return func() {
		mu.Lock()
		root, active = prevRoot, prevActive
		mu.Unlock()
	}
}

// Shutdown flushes logs when the writer is a file.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	if !active || root == nil {
		return fmt.Errorf("logger not initialized")
	}
	if err := root.Sync(); err != nil && !isPathErr(err) {
		return err
	}
	active = false
	return nil
}

/* ------------------------------------------------------------------ *
|  4. Helpers                                                         |
* -------------------------------------------------------------------*/

func defaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		Component:  "cards-client",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

func buildEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	case "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// buildWriter sends logs to stderr by default so that the interactive
// commands keep stdout for their own output.
func buildWriter(cfg *Config) (zapcore.WriteSyncer, bool, error) {
	if cfg.FilePath == "" {
		return zapcore.Lock(zapcore.AddSync(os.Stderr)), false, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
		return nil, false, fmt.Errorf("create log dir: %w", err)
	}
	ws := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	})
	return ws, true, nil
}

func isPathErr(err error) bool {
	_, ok := err.(*os.PathError)
	return ok
}

/* ------------------------------------------------------------------ *
|  5. Child loggers                                                   |
* -------------------------------------------------------------------*/

// New returns a component‑scoped child logger.
func New(component string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if !active {
		return zap.NewNop()
	}
	return root.With(zap.String("component", component))
}

/* ------------------------------------------------------------------ *
|  6. Convenience wrappers                                            |
* -------------------------------------------------------------------*/

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !active {
		return nil
	}
	return root
}

func Debug(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Debug(msg, fields...)
	}
}
func Info(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Info(msg, fields...)
	}
}
func Warn(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Warn(msg, fields...)
	}
}
func Error(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Error(msg, fields...)
	}
}

/* ------------------------------------------------------------------ *
|  7. Hot‑swap log‑level                                              |
* -------------------------------------------------------------------*/

func UpdateLevel(lvl string) error {
	mu.RLock()
	defer mu.RUnlock()

	if !active {
		return fmt.Errorf("logger not initialized")
	}
	level, err := zap.ParseAtomicLevel(lvl)
	if err != nil {
		return err
	}
	atomicLevel.SetLevel(level.Level())
	return nil
}
