// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/shiftsphere/internal/platform/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
}

/*
TestNew_InstallsContextFallback verifies that a context without a logger
still reaches the root logger.
*/
func TestNew_InstallsContextFallback(t *testing.T) {
	previous := zerolog.DefaultContextLogger
	t.Cleanup(func() { zerolog.DefaultContextLogger = previous })

	var buf bytes.Buffer
	root := logger.New(logger.Options{Level: "info", Output: &buf})

	// 1. Below the configured level nothing is written
	root.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	// 2. The fallback logger carries the app field
	zerolog.Ctx(context.Background()).Info().Msg("fallback")
	assert.Contains(t, buf.String(), `"app":"shiftsphere-api"`)
	assert.Contains(t, buf.String(), `"message":"fallback"`)
}
