package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger is the structured logger passed to every component. A nil
// *Logger is valid for Named.
type Logger struct {
	*zap.SugaredLogger
	level *zap.AtomicLevel
}

var (
	root     *Logger
	rootOnce sync.Once
)

// Get builds the process logger on first use; later calls return it and
// ignore their arguments. Use SetLevel to change verbosity afterwards.
func Get(level, format string) *Logger {
	rootOnce.Do(func() {
		root = build(parseLevel(level), format)
	})
	return root
}

// SetLevel changes the process logger's level. Unknown names mean info.
func SetLevel(level string) {
	if root == nil || root.level == nil {
		return
	}
	root.level.SetLevel(parseLevel(level))
}

// parseLevel accepts zap's level names in any case; anything else is info.
func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name), level: l.level}
}
