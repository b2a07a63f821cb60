// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

/*
TestSessionManager_RefreshRotates verifies that each refresh swaps exactly
one stored token and the old one stops working.
*/
func TestSessionManager_RefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "rotate@shiftsphere.test", sec.RoleNormal)
	accountID := signedIn.User.ID

	// 1. Rotation keeps the set size
	pair, err := env.sessions.Refresh(ctx, signedIn.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, signedIn.RefreshToken, pair.RefreshToken)
	assert.Equal(t, 1, env.sessionCount(t, accountID))

	// 2. The new access token verifies for the same account
	claims, err := env.codec.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)

	// 3. The rotated token keeps working once
	_, err = env.sessions.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, env.sessionCount(t, accountID))
}

/*
TestSessionManager_ReuseRevokesEverything replays a rotated refresh token.
*/
func TestSessionManager_ReuseRevokesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "reuse@shiftsphere.test", sec.RoleNormal)
	accountID := signedIn.User.ID

	// A second device is signed in too
	account, err := env.store.FindByID(ctx, accountID)
	require.NoError(t, err)
	other, err := env.sessions.Open(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 2, env.sessionCount(t, accountID))

	// 1. Legitimate rotation
	rotated, err := env.sessions.Refresh(ctx, signedIn.RefreshToken)
	require.NoError(t, err)

	// 2. Replay of the consumed token
	_, err = env.sessions.Refresh(ctx, signedIn.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeSessionCompromised))
	assert.Equal(t, http.StatusUnauthorized, appStatus(err))

	// 3. Every session is gone, including the thief's fresh one
	assert.Zero(t, env.sessionCount(t, accountID))
	_, err = env.sessions.Refresh(ctx, rotated.RefreshToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeSessionCompromised))
	_, err = env.sessions.Refresh(ctx, other.RefreshToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeSessionCompromised))

	// 4. Side effects
	assert.Contains(t, env.notifier.Events(accountID), auth.EventSessionCompromised)
	assert.Equal(t, float64(3), env.counter(t, "auth_refresh_reuse_total"))
}

/*
TestSessionManager_ConcurrentRefresh lets several requests race with the same token.
*/
func TestSessionManager_ConcurrentRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "race@shiftsphere.test", sec.RoleNormal)

	const workers = 6
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		succeeded   int
		compromised int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sessions.Refresh(ctx, signedIn.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.HasCode(err, apperr.CodeSessionCompromised):
				compromised++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, compromised)
	assert.Zero(t, env.sessionCount(t, signedIn.User.ID))
}

/*
TestSessionManager_RefreshRejects covers tokens that never reach rotation.
*/
func TestSessionManager_RefreshRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "reject@shiftsphere.test", sec.RoleNormal)

	// 1. Garbage
	_, err := env.sessions.Refresh(ctx, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, appStatus(err))
	assert.EqualError(t, err, auth.MsgInvalidRefreshToken)

	// 2. An access token is not a refresh token
	_, err = env.sessions.Refresh(ctx, signedIn.AccessToken)
	assert.EqualError(t, err, auth.MsgInvalidRefreshToken)

	// 3. Unknown account
	orphan, err := env.codec.IssueRefreshToken("0190a5b2-0000-7000-8000-000000000000", sec.RoleNormal)
	require.NoError(t, err)
	_, err = env.sessions.Refresh(ctx, orphan)
	assert.Equal(t, http.StatusUnauthorized, appStatus(err))
	assert.EqualError(t, err, auth.MsgAccountGone)

	// 4. Blocked account
	_, err = env.sessions.Block(ctx, signedIn.User.ID)
	require.NoError(t, err)
	_, err = env.sessions.Refresh(ctx, signedIn.RefreshToken)
	assert.Equal(t, http.StatusForbidden, appStatus(err))
}

/*
TestSessionManager_RefreshUsesCurrentRole checks that a role change applies
to the next pair.
*/
func TestSessionManager_RefreshUsesCurrentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "promote@shiftsphere.test", sec.RoleNormal)

	account, err := env.store.FindByID(ctx, signedIn.User.ID)
	require.NoError(t, err)
	account.Role = sec.RoleTeamLeader
	require.NoError(t, env.store.Save(ctx, account))

	pair, err := env.sessions.Refresh(ctx, signedIn.RefreshToken)
	require.NoError(t, err)

	claims, err := env.codec.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleTeamLeader, claims.Role)
}

/*
TestSessionManager_Close verifies single and global revocation.
*/
func TestSessionManager_Close(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "close@shiftsphere.test", sec.RoleCompany)
	accountID := signedIn.User.ID

	account, err := env.store.FindByID(ctx, accountID)
	require.NoError(t, err)
	_, err = env.sessions.Open(ctx, account)
	require.NoError(t, err)

	// 1. Close is idempotent and tolerant
	require.NoError(t, env.sessions.Close(ctx, accountID, signedIn.RefreshToken))
	require.NoError(t, env.sessions.Close(ctx, accountID, signedIn.RefreshToken))
	require.NoError(t, env.sessions.Close(ctx, accountID, ""))
	require.NoError(t, env.sessions.Close(ctx, "missing", "whatever"))
	assert.Equal(t, 1, env.sessionCount(t, accountID))

	// 2. A closed token cannot be refreshed
	_, err = env.sessions.Refresh(ctx, signedIn.RefreshToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeSessionCompromised))

	// 3. CloseAll empties the set and notifies
	_, err = env.sessions.Open(ctx, account)
	require.NoError(t, err)
	require.NoError(t, env.sessions.CloseAll(ctx, accountID))
	assert.Zero(t, env.sessionCount(t, accountID))
	assert.Contains(t, env.notifier.Events(accountID), auth.EventSessionsRevoked)
}

/*
TestSessionManager_Block verifies block and unblock semantics.
*/
func TestSessionManager_Block(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "block@shiftsphere.test", sec.RoleNormal)
	accountID := signedIn.User.ID

	// 1. Block clears sessions and notifies
	blocked, err := env.sessions.Block(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked())
	assert.Zero(t, env.sessionCount(t, accountID))
	assert.Contains(t, env.notifier.Events(accountID), auth.EventAccountBlocked)

	// 2. Unblock restores access without restoring sessions
	unblocked, err := env.sessions.Unblock(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, unblocked.IsBlocked())
	assert.Zero(t, env.sessionCount(t, accountID))

	_, err = env.service.Login(ctx, "block@shiftsphere.test", "password123")
	require.NoError(t, err)

	// 3. Unknown account
	_, err = env.sessions.Block(ctx, "0190a5b2-0000-7000-8000-000000000000")
	assert.Equal(t, http.StatusNotFound, appStatus(err))

	// 4. Admins cannot be blocked
	require.NoError(t, env.service.EnsureAdmin(ctx, "root@shiftsphere.test", "password123", "Root"))
	admin, err := env.store.FindByEmail(ctx, "root@shiftsphere.test")
	require.NoError(t, err)
	_, err = env.sessions.Block(ctx, admin.ID)
	assert.Equal(t, http.StatusBadRequest, appStatus(err))
	assert.EqualError(t, err, auth.MsgCannotBlockAdmin)
}

/*
TestSessionManager_Prune drops entries older than the refresh lifetime.
*/
func TestSessionManager_Prune(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signedIn := env.register(t, "prune@shiftsphere.test", sec.RoleNormal)
	accountID := signedIn.User.ID

	require.NoError(t, env.store.AddSession(ctx, accountID, "stale-digest", time.Now().UTC().Add(-30*24*time.Hour)))
	assert.Equal(t, 2, env.sessionCount(t, accountID))

	require.NoError(t, env.sessions.Prune(ctx, 7*24*time.Hour))
	assert.Equal(t, 1, env.sessionCount(t, accountID))

	// The live session survives
	_, err := env.sessions.Refresh(ctx, signedIn.RefreshToken)
	require.NoError(t, err)
}
