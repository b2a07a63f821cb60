// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package logger builds the root structured logger for the process.

JSON lines are written in production. Development gets zerolog's console
writer. The root logger is also installed as zerolog's DefaultContextLogger so
code holding a context without a request logger still logs somewhere useful.
*/
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taibuivan/shiftsphere/internal/platform/constants"
)

// Options selects the output format and verbosity.
type Options struct {
	Level       string
	Development bool
	Output      io.Writer
}

// New creates the root logger and installs it as the context fallback.
func New(opts Options) zerolog.Logger {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	if opts.Development {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	root := zerolog.New(output).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("app", constants.AppName).
		Logger()

	zerolog.DefaultContextLogger = &root
	return root
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
