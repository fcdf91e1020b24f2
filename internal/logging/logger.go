package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

var (
	mutex         sync.RWMutex
	globalConfig  = Config{Level: "info", Format: "text"}
	globalLevel   = &slog.LevelVar{}
	moduleLoggers = make(map[string]*moduleLogger)

	// output is the handler every logger writes through. Initialize swaps
	// it, so loggers handed out earlier follow format changes.
	output atomic.Pointer[slog.Handler]

	// Overridden in tests.
	stdout         io.Writer = os.Stdout
	journalEnabled           = IsJournalAvailable
)

func init() {
	h := slog.Handler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	output.Store(&h)
}

// Initialize sets up the logging system. It may be called again, for example
// after the config file changed; existing loggers pick up the new levels and
// format.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config

	level := slog.LevelInfo
	if parsed := parseLevel(config.Level); parsed != nil {
		level = *parsed
	}
	globalLevel.Set(level)

	for module, m := range moduleLoggers {
		m.level.Set(level)
		if levelStr, exists := config.Modules[module]; exists {
			if parsed := parseLevel(levelStr); parsed != nil {
				m.level.Set(*parsed)
			}
		}
	}

	h := createHandler(config.Format)
	output.Store(&h)

	slog.SetDefault(slog.New(&dynamicHandler{level: globalLevel}))
}

// GetLogger returns the logger for module, creating it on first use. The
// same *slog.Logger is returned for the lifetime of the process.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if m, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return m.logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if m, exists := moduleLoggers[module]; exists {
		return m.logger
	}

	m := &moduleLogger{level: &slog.LevelVar{}}
	m.level.Set(globalLevel.Level())
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			m.level.Set(*parsed)
		}
	}
	m.logger = slog.New(&dynamicHandler{level: m.level}).With("module", module)
	moduleLoggers[module] = m
	return m.logger
}

// SetModuleLevel changes the level of one module at runtime. The next
// Initialize resets it to what the config says.
func SetModuleLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("logging: unknown level %q", level)
	}
	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers[module].level.Set(*parsed)
	return nil
}

// GlobalLevel returns the level of the default logger.
func GlobalLevel() string {
	return strings.ToLower(globalLevel.Level().String())
}

// Levels returns the current level of every known module.
func Levels() map[string]string {
	mutex.RLock()
	defer mutex.RUnlock()

	levels := make(map[string]string, len(moduleLoggers))
	for module, m := range moduleLoggers {
		levels[module] = strings.ToLower(m.level.Level().String())
	}
	return levels
}

// createHandler builds the output chain: stdout when something is attached
// to it, the journal when journald is reachable, both when both are.
// Filtering by level happens in dynamicHandler, so the outputs accept
// everything.
func createHandler(format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(stdout, opts)
	}

	var handlers []slog.Handler
	if stdout != os.Stdout || isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if journalEnabled() {
		handlers = append(handlers, NewJournalHandler(slog.LevelDebug))
	}

	switch len(handlers) {
	case 0:
		return stdoutHandler
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// Available if terminal, pipe, socket, or regular file (not /dev/null which is ModeDevice)
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// dynamicHandler filters by a per-module level and forwards to whatever
// output is current, replaying the attributes and groups it was derived
// with.
type dynamicHandler struct {
	level slog.Leveler
	ops   []handlerOp
}

type handlerOp struct {
	attrs []slog.Attr
	group string
}

func (h *dynamicHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	out := *output.Load()
	for _, op := range h.ops {
		if op.group != "" {
			out = out.WithGroup(op.group)
		} else {
			out = out.WithAttrs(op.attrs)
		}
	}
	return out.Handle(ctx, r)
}

func (h *dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(handlerOp{attrs: attrs})
}

func (h *dynamicHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(handlerOp{group: name})
}

func (h *dynamicHandler) with(op handlerOp) *dynamicHandler {
	ops := make([]handlerOp, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &dynamicHandler{level: h.level, ops: append(ops, op)}
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
