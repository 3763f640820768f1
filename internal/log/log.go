package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     zerolog.Logger
	loggerOnce sync.Once
	mu         sync.RWMutex
)

// initLogger initializes the global logger to write JSON lines to stderr.
func initLogger() {
	loggerOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	})
}

// Init replaces the global logger. When console is true, output is the
// human-readable zerolog console format instead of JSON lines.
func Init(out io.Writer, console bool, l Level) {
	initLogger()
	if out == nil {
		out = os.Stderr
	}
	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	mu.Lock()
	logger = zerolog.New(out).With().Timestamp().Logger().Level(toZerolog(l))
	mu.Unlock()
}

func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	logger = logger.Level(toZerolog(l))
	mu.Unlock()
}

// ParseLevel maps a config string ("debug", "info", "error") to a Level.
// Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LevelDebug):
		return LevelDebug
	case string(LevelError):
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	logWithLevel(zerolog.DebugLevel, nil, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(zerolog.InfoLevel, nil, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	logWithLevel(zerolog.ErrorLevel, err, msg, kv...)
}

func logWithLevel(level zerolog.Level, err error, msg string, kv ...any) {
	initLogger()
	mu.RLock()
	l := logger
	mu.RUnlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Fields(pairs(kv...)).Msg(msg)
}

// pairs turns key, value, key, value... into a field map. Non-string keys are
// skipped; an odd trailing value is ignored.
func pairs(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
