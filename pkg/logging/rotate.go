package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateConfig sizes the log files kept by RotatingWriter.
type RotateConfig struct {
	MaxSizeMB  int // megabytes before rotating
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotateConfig keeps five 50MB files for a month.
func DefaultRotateConfig() RotateConfig {
	return RotateConfig{MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30, Compress: true}
}

// RotatingWriter returns a writer appending to path and rotating it per cfg.
// Close the writer to release the file.
func RotatingWriter(path string, cfg RotateConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
