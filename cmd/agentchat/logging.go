package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"agentchat/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging points the global logger at the log file. The terminal
// belongs to the UI, so nothing is ever written to stdout or stderr.
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if level == zerolog.Disabled || strings.TrimSpace(cfg.File) == "" {
		log.Logger = zerolog.Nop()
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}
