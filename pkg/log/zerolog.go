package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) { emit(l.zl.Info(), msg, fields) }

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) { emit(l.zl.Warn(), msg, fields) }

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	if len(fields)%2 != 0 {
		fields = fields[:len(fields)-1]
	}
	return &ZerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	zlevel := toZerologLevel(level)
	return zlevel >= l.zl.GetLevel() && zlevel >= zerolog.GlobalLevel()
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Stack().Err(err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		appendField(e, fmt.Sprint(fields[i]), fields[i+1])
	}
	e.Msg(msg)
}

func appendField(e *zerolog.Event, key string, value any) {
	switch v := value.(type) {
	case zerolog.LogObjectMarshaler:
		e.Object(key, v)
	case error:
		e.AnErr(key, v)
	case string:
		e.Str(key, v)
	case int:
		e.Int(key, v)
	case int64:
		e.Int64(key, v)
	case float64:
		e.Float64(key, v)
	case bool:
		e.Bool(key, v)
	case time.Duration:
		e.Dur(key, v)
	case []string:
		e.Strs(key, v)
	case []int:
		e.Ints(key, v)
	case []float64:
		e.Floats64(key, v)
	default:
		e.Interface(key, v)
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider implements LoggerProvider with a shared zerolog root logger.
type ZerologProvider struct {
	mu   sync.RWMutex
	root zerolog.Logger
}

// NewZerologProvider creates a provider writing to w. With console set, output
// is human readable instead of JSON lines.
func NewZerologProvider(w io.Writer, level Level, console bool) *ZerologProvider {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	root := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologProvider{root: root}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return NewZerologLogger(p.root)
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return NewZerologLogger(p.root.With().Str(ComponentKey, name).Logger())
}

// SetLevel implements LoggerProvider.SetLevel. Loggers handed out earlier keep
// their level.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = p.root.Level(toZerologLevel(level))
}

// Zerolog returns the root zerolog logger.
func (p *ZerologProvider) Zerolog() zerolog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}
