// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/middleware"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

type stubVerifier map[string]*sec.AuthClaims

func (v stubVerifier) VerifyAccessToken(token string) (*sec.AuthClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, sec.ErrTokenInvalid
	}
	return claims, nil
}

type stubSubject struct {
	id      string
	role    sec.Role
	blocked bool
}

func (s *stubSubject) SubjectID() string     { return s.id }
func (s *stubSubject) SubjectRole() sec.Role { return s.role }
func (s *stubSubject) IsBlocked() bool       { return s.blocked }

type stubLoader struct {
	subjects map[string]*stubSubject
	err      error
}

func (l stubLoader) LoadSubject(_ context.Context, id string) (sec.Subject, error) {
	if l.err != nil {
		return nil, l.err
	}
	subject, ok := l.subjects[id]
	if !ok {
		return nil, nil
	}
	return subject, nil
}

func fixtures() (stubVerifier, stubLoader) {
	verifier := stubVerifier{
		"worker-token":  {AccountID: "worker", Role: sec.RoleNormal},
		"admin-token":   {AccountID: "admin", Role: sec.RoleAdmin},
		"blocked-token": {AccountID: "blocked", Role: sec.RoleNormal},
		"ghost-token":   {AccountID: "ghost", Role: sec.RoleNormal},
	}
	loader := stubLoader{subjects: map[string]*stubSubject{
		"worker":  {id: "worker", role: sec.RoleNormal},
		"admin":   {id: "admin", role: sec.RoleAdmin},
		"blocked": {id: "blocked", role: sec.RoleNormal, blocked: true},
	}}
	return verifier, loader
}

func message(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body.Message
}

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	subject := ctxutil.GetSubject(request.Context())
	claims := ctxutil.GetAuthClaims(request.Context())
	if subject == nil || claims == nil {
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.WriteHeader(http.StatusOK)
})

/*
TestProtect covers every rejection branch of the access guard.
*/
func TestProtect(t *testing.T) {
	verifier, loader := fixtures()
	handler := middleware.Protect(verifier, loader)(okHandler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"missing_header", "", http.StatusUnauthorized, middleware.MsgNoToken},
		{"wrong_scheme", "Basic abc", http.StatusUnauthorized, middleware.MsgNoToken},
		{"scheme_only", "Bearer ", http.StatusUnauthorized, middleware.MsgNoToken},
		{"invalid_token", "Bearer forged", http.StatusUnauthorized, middleware.MsgInvalidToken},
		{"deleted_account", "Bearer ghost-token", http.StatusUnauthorized, middleware.MsgSubjectGone},
		{"blocked_account", "Bearer blocked-token", http.StatusForbidden, middleware.MsgBlocked},
		{"valid_lowercase_scheme", "bearer worker-token", http.StatusOK, ""},
		{"valid", "Bearer worker-token", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, message(t, recorder))
			}
		})
	}
}

/*
TestProtect_LoaderFailure maps store errors to a generic 500.
*/
func TestProtect_LoaderFailure(t *testing.T) {
	verifier, _ := fixtures()
	handler := middleware.Protect(verifier, stubLoader{err: errors.New("db down")})(okHandler)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer worker-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "db down")
}

/*
TestProtect_QueryToken verifies the websocket handshake fallback.
*/
func TestProtect_QueryToken(t *testing.T) {
	verifier, loader := fixtures()

	// 1. Disabled by default
	recorder := httptest.NewRecorder()
	middleware.Protect(verifier, loader)(okHandler).
		ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ws?token=worker-token", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// 2. Enabled with the option
	recorder = httptest.NewRecorder()
	middleware.Protect(verifier, loader, middleware.WithQueryToken())(okHandler).
		ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ws?token=worker-token", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestAuthorize checks role gating after Protect.
*/
func TestAuthorize(t *testing.T) {
	verifier, loader := fixtures()
	handler := middleware.Protect(verifier, loader)(middleware.Authorize(sec.RoleAdmin)(okHandler))

	// 1. Admin passes
	request := httptest.NewRequest(http.MethodPatch, "/users/x/block", nil)
	request.Header.Set("Authorization", "Bearer admin-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 2. Worker is rejected with the role named
	request = httptest.NewRequest(http.MethodPatch, "/users/x/block", nil)
	request.Header.Set("Authorization", "Bearer worker-token")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "Role 'normal' is not authorized to access this route.", message(t, recorder))

	// 3. Without Protect there is no subject
	recorder = httptest.NewRecorder()
	middleware.Authorize(sec.RoleAdmin)(okHandler).
		ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
