package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Levels accepted by the log_level setting.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Formats accepted by the log_format setting. Console suits a terminal on the
// Pi, JSON suits journald or a log shipper.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Named returns a child logger for one component, e.g. "poller.reading".
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}

var (
	daemonLogger *Logger
	once         sync.Once
)

// Get returns the daemon-wide logger. Only the first call's level and format
// take effect.
func Get(level, format string) *Logger {
	once.Do(func() {
		daemonLogger = &Logger{SugaredLogger: zap.New(newCore(level, format)).Sugar().Named("pimonitor")}
	})
	return daemonLogger
}

func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
