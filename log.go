package main

import (
	"io"
	"os"

	"github.com/fatih/color"
)

const (
	LevelError = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

// Logger writes coloured, levelled lines. The packer runs one step at a
// time, so writes go straight to the writer.
type Logger struct {
	Level  int
	writer io.Writer
}

func NewLogger(level int) *Logger {
	return &Logger{Level: level, writer: color.Error}
}

// NewLoggerTo is NewLogger writing to w, mostly for tests.
func NewLoggerTo(w io.Writer, level int) *Logger {
	return &Logger{Level: level, writer: w}
}

func (l *Logger) helper(format string, a []interface{}, msgColor *color.Color, prefix string) {
	msgColor.Fprintf(l.writer, "["+prefix+"] "+format+"\n", a...)
}

func (l *Logger) Debug(format string, a ...interface{}) {
	if l.Level >= LevelDebug {
		l.helper(format, a, color.New(color.FgBlue, color.Italic), "DEBUG")
	}
}

func (l *Logger) Info(format string, a ...interface{}) {
	if l.Level >= LevelInfo {
		l.helper(format, a, color.New(color.FgHiCyan), "+")
	}
}

func (l *Logger) Warning(format string, a ...interface{}) {
	if l.Level >= LevelWarning {
		l.helper(format, a, color.New(color.FgHiYellow), "!")
	}
}

func (l *Logger) Success(format string, a ...interface{}) {
	l.helper(format, a, color.New(color.FgHiGreen, color.Bold), "+")
}

func (l *Logger) Error(format string, a ...interface{}) {
	l.helper(format, a, color.New(color.FgHiRed, color.Bold), "-")
}

// Fatal logs and exits without returning.
func (l *Logger) Fatal(format string, a ...interface{}) {
	l.Error(format, a...)
	os.Exit(1)
}
