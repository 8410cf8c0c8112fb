// Package logging configures the process wide slog logger.
package logging

import (
	"io"
	log "log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

var levels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Level maps a level name to a slog level. Unknown names mean info.
func Level(name string) log.Level {
	if l, ok := levels[strings.ToLower(name)]; ok {
		return l
	}
	return log.LevelInfo
}

// Setup installs a tint handler writing to w as the default logger.
func Setup(w io.Writer, level string) *log.Logger {
	l := log.New(tint.NewHandler(w, &tint.Options{
		Level:      Level(level),
		TimeFormat: "15:04:05.000",
	}))
	log.SetDefault(l)
	return l
}
