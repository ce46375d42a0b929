// Copyright 2026 Google LLC
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

// Package log configures the process-wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// levelNone is above every level the code logs at.
const levelNone = slog.Level(100)

// Config selects the verbosity and an optional log file.
type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// DefaultConfig logs warnings and above to stderr only.
func DefaultConfig() Config {
	return Config{ //nolint:gomnd // Default configuration values
		Level:      "warning",
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// ParseLevel accepts debug, info, warning, error, critical and none.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warning", "warn":
		return slog.LevelWarn, nil
	case "error", "critical":
		return slog.LevelError, nil
	case "none":
		return levelNone, nil
	}
	return 0, fmt.Errorf("invalid verbosity %q: expected one of debug, info, warning, error, critical, none", s)
}

// Setup installs the default logger. stderr gets a text handler when it is a
// terminal and JSON otherwise; the optional file always gets JSON at the same
// level and is rotated by size. The returned closer releases the file.
func Setup(cfg Config, stderr *os.File) (io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if stderr != nil && term.IsTerminal(int(stderr.Fd())) {
		console = slog.NewTextHandler(stderr, opts)
	} else {
		console = slog.NewJSONHandler(writerOrDiscard(stderr), opts)
	}

	if cfg.File == "" {
		slog.SetDefault(slog.New(console))
		return io.NopCloser(nil), nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	slog.SetDefault(slog.New(slog.NewMultiHandler(console, slog.NewJSONHandler(file, opts))))
	return file, nil
}

func writerOrDiscard(f *os.File) io.Writer {
	if f == nil {
		return io.Discard
	}
	return f
}
