// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/mailer"
)

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, mailer.Message) error {
	f.calls++
	return errors.New("connection refused")
}

/*
TestTemplates verifies links and subjects of both transactional emails.
*/
func TestTemplates(t *testing.T) {

	// 1. Verification
	msg, err := mailer.VerificationEmail("a@x.com", "https://app.example/", "tok123", "24 hours")
	require.NoError(t, err)
	assert.Equal(t, "ShiftSphere - Verify Your Email", msg.Subject)
	assert.Contains(t, msg.Text, "https://app.example/verify-email/tok123")
	assert.Contains(t, msg.HTML, `href="https://app.example/verify-email/tok123"`)
	assert.Contains(t, msg.HTML, "24 hours")

	// 2. Reset
	msg, err = mailer.PasswordResetEmail("a@x.com", "https://app.example", "tok456", "1 hour")
	require.NoError(t, err)
	assert.Equal(t, "ShiftSphere - Reset Your Password", msg.Subject)
	assert.Contains(t, msg.Text, "https://app.example/reset-password/tok456")
	assert.Equal(t, "a@x.com", msg.To)
}

/*
TestLogSender writes the message to the context logger.
*/
func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxutil.WithLogger(context.Background(), zerolog.New(&buf))

	err := mailer.LogSender{}.Send(ctx, mailer.Message{To: "a@x.com", Subject: "hi", Text: "body"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mailer_message_logged")
	assert.Contains(t, buf.String(), `"to":"a@x.com"`)

	assert.ErrorIs(t, mailer.LogSender{}.Send(ctx, mailer.Message{}), mailer.ErrNoRecipient)
}

/*
TestDevSender swallows delivery failures after logging.
*/
func TestDevSender(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxutil.WithLogger(context.Background(), zerolog.New(&buf))
	next := &failingSender{}

	err := mailer.DevSender{Next: next}.Send(ctx, mailer.Message{To: "a@x.com"})
	assert.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Contains(t, buf.String(), "mailer_dev_send_failed")
}

func TestNew(t *testing.T) {
	assert.IsType(t, mailer.LogSender{}, mailer.New(mailer.Config{}, false))
	assert.IsType(t, mailer.DevSender{}, mailer.New(mailer.Config{Host: "smtp", Port: 587}, true))
	assert.IsType(t, &mailer.SMTPSender{}, mailer.New(mailer.Config{Host: "smtp", Port: 587}, false))
}
