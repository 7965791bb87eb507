package utils

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOutputOptions describes where process logs go
type LogOutputOptions struct {
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// NewLogWriter builds the writer for the given options. File output is rotated
// by lumberjack; if the log directory cannot be created stdout is used.
func NewLogWriter(opts LogOutputOptions) io.Writer {
	if opts.Output == "" || opts.Output == "stdout" || opts.FilePath == "" {
		return os.Stdout
	}

	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
		log.Printf("logging: cannot create %s, falling back to stdout: %v", filepath.Dir(opts.FilePath), err)
		return os.Stdout
	}

	rotating := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}
	if opts.Output == "file" {
		return rotating
	}
	return io.MultiWriter(os.Stdout, rotating)
}

// SetupStdLogger points the standard logger at the configured output
func SetupStdLogger(opts LogOutputOptions) {
	log.SetOutput(NewLogWriter(opts))
	log.SetFlags(log.LstdFlags | log.LUTC)
}
