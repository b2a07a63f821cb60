// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

type stubSubject struct {
	id      string
	role    sec.Role
	blocked bool
}

func (s stubSubject) SubjectID() string     { return s.id }
func (s stubSubject) SubjectRole() sec.Role { return s.role }
func (s stubSubject) IsBlocked() bool       { return s.blocked }

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a request logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("request_id", "rid-1").Logger()

	// 1. Inject and log through the retrieved logger
	ctx := ctxutil.WithLogger(context.Background(), logger)
	ctxutil.GetLogger(ctx).Info().Msg("hello")

	// 2. The attached fields are present
	assert.Contains(t, buf.String(), `"request_id":"rid-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

/*
TestContext_AnnotateLogger verifies that fields reach the stored request logger.
*/
func TestContext_AnnotateLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxutil.WithLogger(context.Background(), zerolog.New(&buf))

	ctxutil.AnnotateLogger(ctx, "account_id", "acc-1")
	ctxutil.GetLogger(ctx).Info().Msg("done")

	assert.Contains(t, buf.String(), `"account_id":"acc-1"`)

	// A bare context is a no-op
	assert.NotPanics(t, func() { ctxutil.AnnotateLogger(context.Background(), "k", "v") })
}

/*
TestContext_AuthClaims verifies that AuthClaims can be stored in context.
*/
func TestContext_AuthClaims(t *testing.T) {
	ctx := context.Background()
	claims := &sec.AuthClaims{
		AccountID: "acc-123",
		Role:      sec.RoleAdmin,
	}

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetAuthClaims(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithAuthClaims(ctx, claims)
	retrieved := ctxutil.GetAuthClaims(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "acc-123", retrieved.AccountID)
	assert.Equal(t, sec.RoleAdmin, retrieved.Role)
}

/*
TestContext_Subject verifies that the loaded account travels with the context.
*/
func TestContext_Subject(t *testing.T) {
	ctx := context.Background()

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetSubject(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithSubject(ctx, stubSubject{id: "acc-9", role: sec.RoleCompany})
	subject := ctxutil.GetSubject(ctx)

	assert.NotNil(t, subject)
	assert.Equal(t, "acc-9", subject.SubjectID())
	assert.Equal(t, sec.RoleCompany, subject.SubjectRole())
}
