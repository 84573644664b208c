package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// LogFilepath is where the debug log is written. The TUI owns stdout, so nothing is logged there.
const LogFilepath = "/tmp/ragchat-debug.log"

var (
	once   sync.Once
	logger *slog.Logger
)

// GetLogger returns a singleton slog logger instance
func GetLogger() *slog.Logger {
	once.Do(func() {
		var w io.Writer = io.Discard
		f, err := os.OpenFile(LogFilepath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err == nil {
			w = f
		}
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	})
	return logger
}
