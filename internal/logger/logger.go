// Copyright (c) 2025 The exhume authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
// Package logger provides the small leveled console logger interactive
// commands print through. Scans log to a file via slog instead; this
// exists for the "[INFO] doing x" lines of one-shot commands.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders log severities. Messages below a logger's minimum are
// dropped.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Logger writes "[LEVEL] message" lines. Safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

// New creates a logger writing to w, dropping entries below min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{out: w, min: min}
}

// Console returns a stdout logger for interactive command output.
func Console(min Level) *Logger {
	return New(os.Stdout, min)
}

// Logf is the single emit path; the convenience methods funnel here.
func (l *Logger) Logf(level Level, format string, args ...any) {
	if level < l.min {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.Logf(DebugLevel, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.Logf(InfoLevel, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Logf(WarnLevel, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Logf(ErrorLevel, format, args...) }
