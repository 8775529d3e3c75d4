// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger sets up the process-wide slog logger used by every
// other package in this module. Third-party library logs are muted unless
// the level is DEBUG, so an operator running at INFO only sees runtime
// output.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
)

var defaultLogger *slog.Logger

const defaultModulePrefix = "github.com/agentrt/runtime"

// allowedPrefixes holds the import-path prefixes whose call sites pass
// the non-DEBUG filter. It starts with this module's own prefix;
// AllowModulePrefix extends it for embedders that want their own
// package's logs visible without dropping to DEBUG process-wide.
var (
	prefixMu        sync.RWMutex
	allowedPrefixes = []string{defaultModulePrefix}
)

// AllowModulePrefix registers an additional import-path prefix as
// "ours" for the purposes of the non-DEBUG log filter. A program that
// embeds this runtime under its own module path calls this once at
// startup so its own log lines keep surfacing at INFO/WARN/ERROR
// alongside the runtime's, without needing DEBUG to see third-party
// noise too.
func AllowModulePrefix(prefix string) {
	prefixMu.Lock()
	defer prefixMu.Unlock()
	allowedPrefixes = append(allowedPrefixes, prefix)
}

func snapshotAllowedPrefixes() []string {
	prefixMu.RLock()
	defer prefixMu.RUnlock()
	out := make([]string, len(allowedPrefixes))
	copy(out, allowedPrefixes)
	return out
}

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error. Unknown strings fall back to warn.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

// moduleFilterHandler wraps a slog handler and hides non-module logs unless
// the level is DEBUG.
type moduleFilterHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *moduleFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.minLevel {
		return false
	}
	return h.handler.Enabled(ctx, level)
}

func (h *moduleFilterHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug {
		return h.handler.Handle(ctx, record)
	}
	if h.fromModule(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *moduleFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &moduleFilterHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *moduleFilterHandler) WithGroup(name string) slog.Handler {
	return &moduleFilterHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

// fromModule reports whether pc's call site belongs to one of the
// allow-listed import-path prefixes (this module's own, plus any an
// embedder registered via AllowModulePrefix).
func (h *moduleFilterHandler) fromModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	fullName := fn.Name()
	for _, prefix := range snapshotAllowedPrefixes() {
		if strings.Contains(fullName, prefix) {
			return true
		}
	}
	return false
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}

func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// lineHandler renders one line per record: "LEVEL message key=val ...",
// optionally prefixed with a timestamp and colorized for terminals.
type lineHandler struct {
	writer   io.Writer
	useColor bool
	withTime bool
}

func (h *lineHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	var buf strings.Builder

	if h.withTime && !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}

	levelStr := strings.ToUpper(record.Level.String())
	if levelStr == "WARNING" {
		levelStr = "WARN"
	}
	if h.useColor {
		buf.WriteString(levelColor(record.Level))
		buf.WriteString(levelStr)
		buf.WriteString("\033[0m")
	} else {
		buf.WriteString(levelStr)
	}
	buf.WriteString(" ")
	buf.WriteString(record.Message)

	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")

	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *lineHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *lineHandler) WithGroup(string) slog.Handler      { return h }

// Init installs the process-wide slog logger.
// format: "simple" (level + message), "verbose" (timestamp + level + message),
// anything else falls back to slog's default text handler.
func Init(level slog.Level, output *os.File, format string) {
	var handler slog.Handler

	switch format {
	case "verbose":
		handler = &lineHandler{writer: output, useColor: isTerminal(output), withTime: true}
	case "simple", "":
		handler = &lineHandler{writer: output, useColor: isTerminal(output), withTime: false}
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}

	defaultLogger = slog.New(&moduleFilterHandler{handler: handler, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// OpenLogFile opens or creates a log file for append, returning a cleanup
// function that closes it.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// Get returns the process-wide logger, initializing a default one (INFO,
// stderr, simple) on first use.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}
