// Package logger configures the structured log file
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/barsamuebles/cronos/internal/config"
	"github.com/barsamuebles/cronos/internal/osutil"
)

// Level maps a config level name to a slog level. Unknown names map to info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger writing to the rotated log file at
// cfg.System.LogPath, or to stderr when no path is set. The returned closer
// flushes and closes the file.
func New(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{
		Level: Level(cfg.Log.Level),
	}

	if cfg.System.LogPath == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}

	err := os.MkdirAll(filepath.Dir(cfg.System.LogPath), osutil.DirPermission)
	if err != nil {
		return nil, nil, err
	}

	w := &lumberjack.Logger{
		Filename:   cfg.System.LogPath,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   true,
	}

	l := slog.New(slog.NewJSONHandler(w, opts)).With(
		slog.String("version", config.Version),
		slog.Int("pid", os.Getpid()),
	)

	return l, w, nil
}
