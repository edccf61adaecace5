package config

import (
	"io"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetLogger routes the standard logger to a rotating log file when one is
// configured. The returned closer must be closed on exit; it is a no-op when
// logging stays on standard error.
func (c LogConfig) SetLogger() io.Closer {
	if c.File == "" {
		return nopCloser{}
	}
	l := &lumberjack.Logger{
		Filename: c.File,
		MaxSize:  c.MaxSizeMB, // megabytes
		MaxAge:   c.MaxAgeDays,
	}
	log.SetOutput(l)
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
