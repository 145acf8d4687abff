package candb

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel maps trace|debug|info|warn|error to a LogLevel. Unknown
// strings fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a printf-style levelled logger on top of logrus.
type Logger struct {
	entry *logrus.Entry
}

func NewLogger(out io.Writer, minLevel LogLevel) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(minLevel.logrus())
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000000Z07:00",
	})
	return &Logger{entry: logrus.NewEntry(l).WithField("component", "candb")}
}

// NopLogger discards everything.
func NopLogger() *Logger {
	return NewLogger(io.Discard, ERROR)
}

// With returns a logger that adds key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) SetMinLevel(level LogLevel) {
	l.entry.Logger.SetLevel(level.logrus())
}

func (l *Logger) Trace(msg string, args ...any) { l.entry.Tracef(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.entry.Debugf(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.entry.Infof(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.entry.Warnf(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.entry.Errorf(msg, args...) }
