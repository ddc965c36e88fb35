// Package logging provides structured JSON logging for scanchat components.
package logging

import (
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide logger.
type Options struct {
	// File is the rotated JSON log file. Empty disables file output.
	File string
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Console mirrors events to stderr in console format.
	Console bool
}

var (
	base   = zap.NewNop()
	baseMu sync.RWMutex
)

// Init builds the shared core. Loggers created with New pick it up lazily,
// so components may be constructed before Init runs.
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "event"

	var cores []zapcore.Core
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			level,
		))
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	logger := zap.NewNop()
	if len(cores) > 0 {
		logger = zap.New(zapcore.NewTee(cores...))
	}

	baseMu.Lock()
	base = logger
	baseMu.Unlock()
	return nil
}

// Sync flushes buffered entries.
func Sync() error {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Sync()
}

// Logger provides structured logging for one component.
type Logger struct {
	component string
	z         *zap.Logger
}

// New creates a logger for a component on top of the shared core.
func New(component string) *Logger {
	return &Logger{component: component}
}

// NewWithZap binds a component to a specific zap logger (tests use an observer core).
func NewWithZap(component string, z *zap.Logger) *Logger {
	return &Logger{component: component, z: z}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{component: "nop", z: zap.NewNop()}
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) logger() *zap.Logger {
	if l.z != nil {
		return l.z
	}
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

func (l *Logger) fields(extra map[string]any, err error) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+2)
	fields = append(fields, zap.String("component", l.component))

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, extra[k]))
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]any) {
	l.logger().Debug(event, l.fields(extra, nil)...)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]any) {
	l.logger().Info(event, l.fields(extra, nil)...)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]any, err error) {
	l.logger().Warn(event, l.fields(extra, err)...)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]any, err error) {
	l.logger().Error(event, l.fields(extra, err)...)
}

// TimedEvent logs an event with its duration since start.
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]any) {
	fields := l.fields(extra, nil)
	fields = append(fields, zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	l.logger().Info(event, fields...)
}
