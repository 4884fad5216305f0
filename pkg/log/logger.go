package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelWarn, false)
)

// SetProvider replaces the global provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetLogger returns a logger from the global provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a component logger from the global provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// SetupLogger installs a zerolog provider writing to w at the given level and
// routes library warnings (errors.Warn) into it.
func SetupLogger(loglevel string, w io.Writer, console bool) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	p := NewZerologProvider(w, level, console)
	SetProvider(p)

	zl := p.Zerolog().With().Str(ComponentKey, "warnings").Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		e := zl.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			e = e.Object("warning", m)
		}
		e.Msg(warning.Error())
	})
	return nil
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}
