package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

// InitLogger installs a JSON logger writing to path at the given level and
// makes it the slog default. The returned closer releases the log file.
func InitLogger(path, level string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	Logger = NewLogger(f, level)
	slog.SetDefault(Logger)

	Logger.Info("logger initialized", "level", ParseLevel(level).String())
	return f, nil
}

// NewLogger creates a JSON logger on w
func NewLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: replaceTimeAttr,
	})
	return slog.New(handler)
}

// ParseLevel maps debug, info, warn and error to slog levels; anything else is info
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func replaceTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String("time", a.Value.Time().Local().Format("2006-01-02 15:04:05"))
	}
	return a
}
