// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
)

/*
TestConstructors checks status and code of every error kind the identity flows use.
*/
func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *apperr.AppError
		status int
		code   string
	}{
		{"not_found", apperr.NotFound("User not found"), http.StatusNotFound, apperr.CodeNotFound},
		{"unauthorized", apperr.Unauthorized("Invalid email or password"), http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"forbidden", apperr.Forbidden("blocked"), http.StatusForbidden, apperr.CodeForbidden},
		{"conflict", apperr.Conflict("User already exists"), http.StatusConflict, apperr.CodeConflict},
		{"validation", apperr.ValidationError("bad"), http.StatusBadRequest, apperr.CodeValidation},
		{"invalid_or_expired", apperr.InvalidOrExpired("reset token"), http.StatusBadRequest, apperr.CodeInvalidOrExpired},
		{"compromised", apperr.SessionCompromised(), http.StatusUnauthorized, apperr.CodeSessionCompromised},
		{"rate_limited", apperr.RateLimited(1), http.StatusTooManyRequests, apperr.CodeRateLimited},
		{"method", apperr.MethodNotAllowed("no"), http.StatusMethodNotAllowed, apperr.CodeMethodNotAllowed},
		{"unavailable", apperr.ServiceUnavailable("down"), http.StatusServiceUnavailable, apperr.CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}

	assert.Equal(t, "Invalid or expired reset token", apperr.InvalidOrExpired("reset token").Error())
}

/*
TestHelpers follows wrapped chains and hides the cause from the client message.
*/
func TestHelpers(t *testing.T) {
	cause := errors.New("connection reset")

	// 1. Internal keeps the cause for logs only
	internal := apperr.Internal(cause)
	assert.Equal(t, "Something went wrong", internal.Error())
	assert.ErrorIs(t, internal, cause)

	// 2. Wrapped AppErrors are still found
	wrapped := fmt.Errorf("auth_service_refresh_failed: %w", apperr.SessionCompromised())
	require.True(t, apperr.IsAppError(wrapped))
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeSessionCompromised))
	assert.False(t, apperr.HasCode(wrapped, apperr.CodeUnauthorized))

	// 3. Plain errors are not AppErrors
	assert.Nil(t, apperr.As(cause))
	assert.False(t, apperr.HasCode(cause, apperr.CodeInternal))

	// 4. WithCause
	conflict := apperr.Conflict("User already exists").WithCause(cause)
	assert.ErrorIs(t, conflict, cause)
}
