package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ragstack/ragctl/internal/ui"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	SUCCESS
	WARN
	ERROR
)

// Logger is a small leveled logger. In CLI mode it renders through the ui
// package so operator-facing output is colored; otherwise it writes plain
// bracketed level prefixes suitable for CI logs.
type Logger struct {
	writer io.Writer
	Level  LogLevel
	mutex  sync.Mutex
	isCLI  bool
}

func NewLogger(level LogLevel, isCLI bool) *Logger {
	return &Logger{writer: os.Stdout, Level: level, isCLI: isCLI}
}

// NewWriterLogger logs plain prefixed lines to w. Used in tests.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	return &Logger{writer: w, Level: level}
}

func (l *Logger) Debug(format string, a ...any) {
	if l.Level > DEBUG {
		return
	}
	if l.isCLI {
		ui.Debug(format, a...)
		return
	}
	l.write("DEBUG", fmt.Sprintf(format, a...))
}

func (l *Logger) Info(format string, a ...any) {
	if l.Level > INFO {
		return
	}
	if l.isCLI {
		ui.Info(format, a...)
		return
	}
	l.write("INFO", fmt.Sprintf(format, a...))
}

func (l *Logger) Success(format string, a ...any) {
	if l.Level > SUCCESS {
		return
	}
	if l.isCLI {
		ui.Success(format, a...)
		return
	}
	l.write("SUCCESS", fmt.Sprintf(format, a...))
}

func (l *Logger) Warn(msg string, err ...error) {
	if l.Level > WARN {
		return
	}
	msg = appendErr(msg, err)
	if l.isCLI {
		ui.Warn("%s", msg)
		return
	}
	l.write("WARN", msg)
}

func (l *Logger) Error(msg string, err ...error) {
	msg = appendErr(msg, err)
	if l.isCLI {
		ui.Error("%s", msg)
		return
	}
	l.write("ERROR", msg)
}

func (l *Logger) write(level, msg string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	fmt.Fprintf(l.writer, "[%s] %s\n", level, msg)
}

func appendErr(msg string, err []error) string {
	if len(err) > 0 && err[0] != nil {
		return fmt.Sprintf("%s: %v", msg, err[0])
	}
	return msg
}
