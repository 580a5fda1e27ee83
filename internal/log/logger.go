/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the process-wide slog logger: a console sink on
// stderr (readable text or JSON), an optional rotating JSON file, and
// helpers that scope a logger to a component, operation or project.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"github.com/Aimer779/Seedance2-Storyboard-Generator/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "SEEDANCE_LOG_LEVEL"
	EnvFormat = "SEEDANCE_LOG_FORMAT"
	EnvSource = "SEEDANCE_LOG_SOURCE"
	EnvFile   = "SEEDANCE_LOG_FILE"
)

// Options selects level, console format and the optional log file.
// Level is debug|info|warn|error, Format console|json.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
}

// Rotation limits of the log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// L returns the process logger. Before Init it is built from the environment.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		l = Init(FromEnv())
	}
	return l
}

// Init replaces the process logger (and slog.Default) and returns it.
func Init(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(os.Stderr, hopts))
	} else {
		sinks = append(sinks, newConsoleHandler(os.Stderr, level, opts.AddSource))
	}
	if file := strings.TrimSpace(opts.File); file != "" {
		w := &lj.Logger{
			Filename:   file,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		sinks = append(sinks, slog.NewJSONHandler(w, hopts))
	}

	l := slog.New(contextHandler{next: fanout(sinks)}).With(
		slog.String("app", "seedance"),
		slog.String("ver", version.String()),
	)
	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// FromEnv reads Options from the SEEDANCE_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "console"),
		AddSource: parseBool(os.Getenv(EnvSource)),
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithComponent returns the process logger tagged with component=name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with op.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// WithProject tags l with the project id and, when known, its folder.
func WithProject(l *slog.Logger, projectID int64, folder string) *slog.Logger {
	l = l.With(slog.Int64("project_id", projectID))
	if folder != "" {
		l = l.With(slog.String("folder", folder))
	}
	return l
}

type batchKey struct{}

// WithBatch returns a context whose records (logged through the *Context
// methods) carry batch=id. It groups the lines of one multi-project run.
func WithBatch(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchKey{}, id)
}

// BatchFrom returns the batch id stored by WithBatch.
func BatchFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(batchKey{}).(string)
	return id, ok && id != ""
}
