package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger returns a zerolog Logger and the closer of its file sink.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// A non-empty file additionally receives JSON lines; close it when the run ends.
func NewLogger(env, file string) (zerolog.Logger, io.Closer, error) {
	var console io.Writer = os.Stdout
	if env == "dev" || env == "development" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if file == "" {
		return zerolog.New(console).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	w := zerolog.MultiLevelWriter(console, f)
	return zerolog.New(w).With().Timestamp().Logger(), f, nil
}
