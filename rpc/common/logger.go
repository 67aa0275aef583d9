package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LoggerNames are the named loggers used throughout the client
var LoggerNames = []string{"client", "transport", "discovery", "cli"}

// levelNames maps dragonboat levels to their printed form
var levelNames = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// logSink is shared by all loggers so that lines of different packages never interleave
var logSink = struct {
	sync.Mutex
	out io.Writer
}{out: os.Stderr}

// SetLogOutput redirects all loggers created by CreateLogger, stderr is the default
func SetLogOutput(w io.Writer) {
	logSink.Lock()
	defer logSink.Unlock()
	logSink.out = w
}

// --------------------------------------------------------------------------
// Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

type nsqcLogger struct {
	name string

	mu    sync.RWMutex
	level logger.LogLevel
}

func (l *nsqcLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *nsqcLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *nsqcLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *nsqcLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *nsqcLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs the message and panics regardless of the level
func (l *nsqcLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, msg)
	panic(msg)
}

func (l *nsqcLogger) enabled(level logger.LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level <= l.level
}

func (l *nsqcLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

// write prints one line: <time> <LEVEL> <name>: <message>
func (l *nsqcLogger) write(level logger.LogLevel, msg string) {
	line := fmt.Sprintf("%s %-5s %s: %s\n",
		time.Now().Format("2006-01-02T15:04:05.000"), levelNames[level], l.name, strings.TrimRight(msg, "\n"))

	logSink.Lock()
	defer logSink.Unlock()
	_, _ = io.WriteString(logSink.out, line)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements dragonboats logger.Factory. Logs go to stderr so that command
// output on stdout stays clean.
func CreateLogger(pkgName string) logger.ILogger {
	return &nsqcLogger{name: pkgName, level: logger.INFO}
}

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs the logger factory and sets the level of all named loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
