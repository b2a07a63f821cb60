// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/middleware"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/users/account"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
	"github.com/taibuivan/shiftsphere/pkg/pointer"
)

// # Fixtures

type fixture struct {
	store    *auth.MemoryAccountStore
	codec    *sec.TokenCodec
	sessions *auth.SessionManager
	service  *account.Service
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := sec.NewTokenCodec(sec.CodecConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "shiftsphere.test",
		Audience:      "shiftsphere-test",
	})
	require.NoError(t, err)

	f := &fixture{store: auth.NewMemoryAccountStore(), codec: codec}
	f.sessions = auth.NewSessionManager(f.store, codec, nil, nil)
	f.service = account.NewService(f.store, f.sessions, nil)

	loader := auth.NewService(f.store, f.sessions, nil, nil, nil, nil, nil, auth.ServiceConfig{})
	handler := account.NewHandler(f.service, middleware.Protect(codec, loader))
	router := chi.NewRouter()
	router.Mount("/users", handler.Routes())
	f.router = router
	return f
}

// create stores an account with one open session and returns it with an access token.
func (f *fixture) create(t *testing.T, email string, role sec.Role) (*auth.Account, string) {
	t.Helper()
	ctx := context.Background()

	created := &auth.Account{
		Email:            email,
		PasswordHash:     "hash",
		Name:             "Member",
		NationalIDNumber: "NID-" + email,
		Role:             role,
		Provider:         auth.ProviderLocal,
	}
	require.NoError(t, f.store.Create(ctx, created))

	pair, err := f.sessions.Open(ctx, created)
	require.NoError(t, err)
	return created, pair.AccessToken
}

func (f *fixture) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	request := httptest.NewRequest(method, path, &reader)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)

	var out map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return recorder.Code, out
}

// # Service

/*
TestService_ChangeRole accepts all four roles and rejects others.
*/
func TestService_ChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member, _ := f.create(t, "role@shiftsphere.test", sec.RoleNormal)

	// 1. Each valid role
	for _, role := range sec.Roles() {
		view, err := f.service.ChangeRole(ctx, member.ID, role)
		require.NoError(t, err)
		assert.Equal(t, role, view.Role)
	}

	// 2. Unknown role
	_, err := f.service.ChangeRole(ctx, member.ID, sec.Role("owner"))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	// 3. Unknown account
	_, err = f.service.ChangeRole(ctx, "missing", sec.RoleCompany)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestService_UpdateProfile changes only the provided fields.
*/
func TestService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member, _ := f.create(t, "profile@shiftsphere.test", sec.RoleCompany)

	view, err := f.service.UpdateProfile(ctx, member.ID, account.ProfileInput{Name: pointer.To("Acme Staffing")})
	require.NoError(t, err)
	assert.Equal(t, "Acme Staffing", view.Name)
	assert.Equal(t, sec.RoleCompany, view.Role)

	_, err = f.service.UpdateProfile(ctx, member.ID, account.ProfileInput{})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

/*
TestService_RoleStats zero-fills missing roles.
*/
func TestService_RoleStats(t *testing.T) {
	f := newFixture(t)
	f.create(t, "w1@shiftsphere.test", sec.RoleNormal)
	f.create(t, "w2@shiftsphere.test", sec.RoleNormal)
	f.create(t, "c1@shiftsphere.test", sec.RoleCompany)

	stats, err := f.service.RoleStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, account.RoleStats{
		sec.RoleNormal:     2,
		sec.RoleCompany:    1,
		sec.RoleTeamLeader: 0,
		sec.RoleAdmin:      0,
	}, stats)
}

type failingStore struct{ account.AccountStore }

func (failingStore) CountByRole(context.Context) (map[sec.Role]int, error) {
	return nil, errors.New("db down")
}

func TestService_RoleStats_StoreFailure(t *testing.T) {
	service := account.NewService(failingStore{}, nil, nil)
	_, err := service.RoleStats(context.Background())
	assert.ErrorContains(t, err, "db down")
}

// # HTTP

/*
TestHTTP_AdminRoutes covers the admin-only surface end to end.
*/
func TestHTTP_AdminRoutes(t *testing.T) {
	f := newFixture(t)
	_, adminToken := f.create(t, "admin@shiftsphere.test", sec.RoleAdmin)
	worker, workerToken := f.create(t, "worker@shiftsphere.test", sec.RoleNormal)

	// 1. Non-admins are rejected
	status, out := f.call(t, http.MethodPatch, "/users/"+worker.ID+"/block", workerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Role 'normal' is not authorized to access this route.", out["message"])

	// 2. Block clears sessions and locks the worker out
	status, out = f.call(t, http.MethodPatch, "/users/"+worker.ID+"/block", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, account.MsgBlocked, out["message"])

	count, err := f.store.CountSessions(context.Background(), worker.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	status, _ = f.call(t, http.MethodPatch, "/users/profile", workerToken, map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, status)

	// 3. Unblock
	status, _ = f.call(t, http.MethodPatch, "/users/"+worker.ID+"/unblock", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = f.call(t, http.MethodPatch, "/users/profile", workerToken, map[string]string{"name": "Back Again"})
	assert.Equal(t, http.StatusOK, status)

	// 4. Change role
	status, out = f.call(t, http.MethodPatch, "/users/"+worker.ID+"/role", adminToken, map[string]string{"role": "team_leader"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "team_leader", out["data"].(map[string]any)["role"])

	status, out = f.call(t, http.MethodPatch, "/users/"+worker.ID+"/role", adminToken, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "role must be one of: normal, company, team_leader, admin", out["message"])

	// 5. Stats
	status, out = f.call(t, http.MethodGet, "/users/stats/roles", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"normal": 0.0, "company": 0.0, "team_leader": 1.0, "admin": 1.0}, out["data"])

	// 6. Lookup
	status, out = f.call(t, http.MethodGet, "/users/"+worker.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "worker@shiftsphere.test", out["data"].(map[string]any)["email"])

	status, _ = f.call(t, http.MethodGet, "/users/0190a5b2-0000-7000-8000-000000000000", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

/*
TestHTTP_BlockAdmin refuses to block another administrator.
*/
func TestHTTP_BlockAdmin(t *testing.T) {
	f := newFixture(t)
	_, adminToken := f.create(t, "admin@shiftsphere.test", sec.RoleAdmin)
	other, _ := f.create(t, "admin2@shiftsphere.test", sec.RoleAdmin)

	status, out := f.call(t, http.MethodPatch, "/users/"+other.ID+"/block", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, auth.MsgCannotBlockAdmin, out["message"])
}
