// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log provides the small leveled-logging abstraction shared by the
// reader, the writer, and the CLI. It intentionally stays minimal: a
// Logger knows how to emit a levelled key/value record, and a Helper wraps
// one with printf-style convenience methods.
package log

import (
	"fmt"
	"io"
	"sync"
)

// Level is a logging severity.
type Level int

// Levels, ordered from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is implemented by anything that can record a levelled message with
// structured key/value pairs. Callers of the class reader/writer may inject
// their own implementation via ReaderOptions.Logger or WriterOptions.Logger.
type Logger interface {
	Log(level Level, keyvals ...any) error
}

// stdLogger writes tab-separated records to an io.Writer.
type stdLogger struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdLogger returns a Logger that writes to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{out: w}
}

func (l *stdLogger) Log(level Level, keyvals ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	_, err := fmt.Fprintf(l.out, "[%s] ", level)
	if err != nil {
		return err
	}
	for i := 0; i < len(keyvals); i += 2 {
		if _, err := fmt.Fprintf(l.out, "%v=%v ", keyvals[i], keyvals[i+1]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(l.out)
	return err
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	Logger
	level Level
}

// FilterOption configures a filtering Logger returned by NewFilter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level that passes through the filter.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.level = level }
}

// NewFilter returns a Logger that only forwards records at or above the
// configured level (LevelInfo by default).
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filter{Logger: logger, level: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...any) error {
	if level < f.level {
		return nil
	}
	return f.Logger.Log(level, keyvals...)
}

// Helper adds printf-style convenience methods on top of a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in printf-style convenience methods.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...any) {
	if h == nil || h.logger == nil {
		return
	}
	_ = h.logger.Log(level, "msg", fmt.Sprintf(format, args...))
}

// Debugf logs a formatted debug-level message.
func (h *Helper) Debugf(format string, args ...any) { h.log(LevelDebug, format, args...) }

// Infof logs a formatted info-level message.
func (h *Helper) Infof(format string, args ...any) { h.log(LevelInfo, format, args...) }

// Warnf logs a formatted warn-level message.
func (h *Helper) Warnf(format string, args ...any) { h.log(LevelWarn, format, args...) }

// Errorf logs a formatted error-level message.
func (h *Helper) Errorf(format string, args ...any) { h.log(LevelError, format, args...) }
