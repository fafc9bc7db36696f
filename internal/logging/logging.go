// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select the level and destination.
type Options struct {
	Level string
	// File, when set, receives the log through a rotating writer instead of
	// Stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Stderr     io.Writer
}

// New returns a logger and the closer for its destination. The closer is a
// no-op for stderr output.
func New(opts Options) (*log.Logger, io.Closer, error) {
	level := log.WarnLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := log.ParseLevel(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", s, err)
		}
		level = parsed
	}

	var out io.Writer = opts.Stderr
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	formatter := log.TextFormatter

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    valueOr(opts.MaxSizeMB, 10),
			MaxBackups: valueOr(opts.MaxBackups, 3),
			Compress:   true,
		}
		out = rotating
		closer = rotating
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
	return logger, closer, nil
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
