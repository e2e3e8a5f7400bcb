// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/pyrig/internal/core/ports"
)

// messager is implemented by zerr errors, which can report their own message without the chain.
type messager interface {
	Message() string
}

// metadataCarrier is implemented by zerr errors that carry key/value metadata.
type metadataCarrier interface {
	Metadata() map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger *slog.Logger
	mu     sync.RWMutex
}

// New creates a new Logger writing human-readable text to stderr.
func New() ports.Logger {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a new Logger writing to w.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{logger: slog.New(newHandler(w))}
}

func newHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

// SetOutput updates the logger's output destination.
// If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = slog.New(newHandler(w))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error with its cause chain and metadata.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Error(FormatError(err))
}

// FormatError renders an error chain as a main message followed by its causes.
// Metadata attached to zerr errors is appended as key=value pairs in key order.
func FormatError(err error) string {
	var lines []string
	pending := ""
	for current := err; current != nil; {
		msg := current.Error()
		m, isZerr := current.(messager)
		if isZerr {
			msg = m.Message()
		}
		if mc, ok := current.(metadataCarrier); ok {
			pending += formatMetadata(mc.Metadata())
		}

		// zerr.With on a standard error wraps it without a message.
		if msg != "" {
			msg += pending
			pending = ""
			switch len(lines) {
			case 0:
				lines = append(lines, msg)
			case 1:
				lines = append(lines, "caused by: "+msg)
			default:
				lines = append(lines, "           "+msg)
			}
		}

		if !isZerr {
			break
		}
		current = errors.Unwrap(current)
	}
	return strings.Join(lines, "\n")
}

func formatMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		fmt.Fprintf(&b, " %s=%v", k, meta[k])
	}
	return b.String()
}
