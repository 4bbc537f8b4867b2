// Package logger is the process-wide jyn log. It is silent until Init or
// SetOutput is called.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	globalLogger *log.Logger
	logFile      *os.File
	out          io.Writer
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //#nosec G304 -- user-provided log path
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	setOutputLocked(f)
	return nil
}

// SetOutput sends log lines to w. Passing nil silences the logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutputLocked(w)
}

// Mirror additionally copies log lines to w (the CLI uses it for --verbose).
func Mirror(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if out == nil {
		setOutputLocked(w)
		return
	}
	setOutputLocked(io.MultiWriter(out, w))
}

func setOutputLocked(w io.Writer) {
	out = w
	if w == nil {
		globalLogger = nil
		return
	}
	globalLogger = log.New(w, "", log.Ltime|log.Lmicroseconds)
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	setOutputLocked(nil)
}

func printf(level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Printf("["+level+"] "+format, v...)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) { printf("INFO", format, v...) }

// Debug logs a debug message.
func Debug(format string, v ...interface{}) { printf("DEBUG", format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { printf("WARN", format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { printf("ERROR", format, v...) }

// GetWriter returns the current log destination for components that keep
// their own *log.Logger (the UIAutomator2 client).
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if out != nil {
		return out
	}
	return io.Discard
}
