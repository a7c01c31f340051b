package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"longtail_monitor/internal/shared/types"
)

// Init initializes the global zerolog logger. Console output always goes to
// stderr; when cfg.Dir is set a size-rotated JSON file sink is added so long
// scheduled runs keep a persistent trail.
func Init(cfg types.LogConf) error {
	levelStr := strings.ToLower(cfg.Level)
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
		fmt.Printf("Unknown log level '%s', defaulting to 'info'\n", levelStr)
	}

	// Force all timestamps to be in UTC.
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}

	var sink io.Writer = consoleWriter
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		fileSink := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "longtail.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		sink = zerolog.MultiLevelWriter(consoleWriter, fileSink)
	}

	log.Logger = zerolog.New(sink).
		Level(level).
		With().
		Timestamp().
		Logger()

	Info().Msgf("Logger initialized with level: %s", level.String())

	return nil
}

// WithComponent returns a logger tagged with a component name, used to tell
// the pipeline stages apart in interleaved output.
func WithComponent(name string) *zerolog.Logger {
	l := log.Logger.With().Str("component", name).Logger()
	return &l
}

// Event is a wrapper for a zerolog event.
type Event struct {
	*zerolog.Event
}

// Debug starts a new message with debug level.
func Debug() *Event {
	return &Event{log.Debug()}
}

// Info starts a new message with info level.
func Info() *Event {
	return &Event{log.Info()}
}

// Warn starts a new message with warning level.
func Warn() *Event {
	return &Event{log.Warn()}
}

// Error starts a new message with error level.
func Error() *Event {
	return &Event{log.Error()}
}

// Fatal starts a new message with fatal level. The program will exit.
func Fatal() *Event {
	return &Event{log.Fatal()}
}

// Str adds a string field to the event.
func (e *Event) Str(key, value string) *Event {
	e.Event = e.Event.Str(key, value)
	return e
}

// Int adds an integer field to the event.
func (e *Event) Int(key string, value int) *Event {
	e.Event = e.Event.Int(key, value)
	return e
}

// Dur adds a duration field to the event.
func (e *Event) Dur(key string, value time.Duration) *Event {
	e.Event = e.Event.Dur(key, value)
	return e
}

// Float64 adds a float field to the event.
func (e *Event) Float64(key string, value float64) *Event {
	e.Event = e.Event.Float64(key, value)
	return e
}

// Err adds an error field to the event.
func (e *Event) Err(err error) *Event {
	e.Event = e.Event.Err(err)
	return e
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Event.Msgf(format, v...)
}
