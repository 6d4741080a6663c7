// Package log is a minimal leveled logger for ceremony tracing.
//
// It is silent by default (Level == 0): a caller embedding this library
// opts into trace output by raising Level.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

const (
	ErrorLevel = 1
	InfoLevel  = 2
	DebugLevel = 3
)

var (
	Level int = 0
	mu    sync.Mutex
	// If Record is not nil, it is used to send log messages instead of
	// Stderr.
	Record func(...interface{})
)

var internalLogger = &Logger{skip: 1}

// DefaultLogger returns a Logger usable from code that isn't this package.
func DefaultLogger() *Logger {
	return &Logger{}
}

type Logger struct {
	skip int
}

func (l *Logger) log(d int, level, s string) {
	fl := "unknown"
	if _, file, line, ok := runtime.Caller(d + l.skip); ok {
		fl = fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file)), line)
	}
	t := time.Now().UTC().Format("0102 150405.000")
	if Record != nil {
		Record(fmt.Sprintf("%s%s %s] %s", level, t, fl, s))
		return
	}
	mu.Lock()
	fmt.Fprintf(os.Stderr, "%s%s %s] %s\n", level, t, fl, s)
	mu.Unlock()
}

func Error(args ...interface{}) {
	internalLogger.Error(args...)
}

func (l *Logger) Error(args ...interface{}) {
	if Level >= ErrorLevel {
		l.log(2, "E", fmt.Sprint(args...))
	}
}

func Errorf(format string, args ...interface{}) {
	internalLogger.Errorf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if Level >= ErrorLevel {
		l.log(2, "E", fmt.Sprintf(format, args...))
	}
}

func Info(args ...interface{}) {
	internalLogger.Info(args...)
}

func (l *Logger) Info(args ...interface{}) {
	if Level >= InfoLevel {
		l.log(2, "I", fmt.Sprint(args...))
	}
}

func Infof(format string, args ...interface{}) {
	internalLogger.Infof(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if Level >= InfoLevel {
		l.log(2, "I", fmt.Sprintf(format, args...))
	}
}

func Debug(args ...interface{}) {
	internalLogger.Debug(args...)
}

func (l *Logger) Debug(args ...interface{}) {
	if Level >= DebugLevel {
		l.log(2, "D", fmt.Sprint(args...))
	}
}

func Debugf(format string, args ...interface{}) {
	internalLogger.Debugf(format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if Level >= DebugLevel {
		l.log(2, "D", fmt.Sprintf(format, args...))
	}
}
