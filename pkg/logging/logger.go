// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging configures structured logging for the querylens CLI.
//
// The analysis packages log through the process-wide slog default; this
// package builds the handler stack behind it:
//
//   - stderr in human-readable text (the CLI default)
//   - an optional per-day JSON log file under a log directory
//
// Analysis results go to stdout, diagnostics go to the logger. Keeping
// the two streams separate means the JSON output of `querylens queries
// --format json` stays machine-parseable under --verbose.
//
// # Usage
//
//	closer, err := logging.Setup(logging.Config{Level: slog.LevelDebug})
//	if err != nil { ... }
//	defer closer.Close()
//
// # Thread Safety
//
// Setup must be called once, before concurrent logging starts. The
// installed handlers are safe for concurrent use.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// service tags every log entry with the emitting component.
const service = "querylens"

// Config controls the logging destinations.
//
// The zero value logs warnings and errors to stderr as text, which is
// the right default for a CLI whose stdout carries analysis results.
type Config struct {
	// Level is the minimum level written to any destination.
	Level slog.Level

	// LogDir enables file logging. When set, entries are also appended
	// to "querylens_{YYYY-MM-DD}.log" in this directory, always as
	// JSON. A leading ~ expands to the user's home directory, and the
	// directory is created when missing.
	LogDir string

	// JSON switches the stderr stream to JSON as well.
	JSON bool

	// Quiet drops the stderr stream entirely; useful when only the
	// file log is wanted.
	Quiet bool
}

// Closer releases the resources held by the installed logger.
type Closer struct {
	file *os.File
}

// Close syncs and closes the log file, if one was opened.
func (c *Closer) Close() error {
	if c.file == nil {
		return nil
	}
	if err := c.file.Sync(); err != nil {
		c.file.Close()
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	c.file = nil
	return nil
}

// Setup builds the handler stack for cfg and installs it as the slog
// default.
//
// Outputs:
//   - *Closer: Releases the log file on shutdown. Never nil.
//   - error: Non-nil when the log directory or file cannot be created;
//     stderr logging is still installed in that case.
func Setup(cfg Config) (*Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handlers []slog.Handler
	if !cfg.Quiet {
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	closer := &Closer{}
	var fileErr error
	if cfg.LogDir != "" {
		file, err := openLogFile(cfg.LogDir)
		if err != nil {
			fileErr = err
		} else {
			closer.file = file
			// File logs are always JSON; they exist to be parsed.
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		// Quiet with no file still needs a sink for Enabled checks.
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(127)})
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	handler = handler.WithAttrs([]slog.Attr{slog.String("service", service)})
	slog.SetDefault(slog.New(handler))
	return closer, fileErr
}

// openLogFile creates the log directory and opens today's log file in
// append mode.
func openLogFile(dir string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// multiHandler fans one record out to several slog handlers, letting
// stderr stay text while the file stays JSON.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled reports whether any destination wants the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to every enabled destination.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs applies the attributes to every destination.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup applies the group to every destination.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
