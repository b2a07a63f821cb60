// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/realtime"
)

// # Contracts & Types

// TokenCodec issues and verifies the signed token pair.
// [sec.TokenCodec] is the production implementation.
type TokenCodec interface {
	IssueAccessToken(accountID string, role sec.Role) (string, error)
	IssueRefreshToken(accountID string, role sec.Role) (string, error)
	VerifyRefreshToken(token string) (*sec.AuthClaims, error)
}

// TokenPair is returned by every path that opens or rotates a session.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionManager owns the per-account refresh-token set.
//
// # Rotation
//
// Every refresh consumes exactly one stored digest and stores exactly one new
// digest, through [AccountStore.RotateSession]. A verified token whose digest
// is no longer stored has already been rotated once, so it is treated as
// stolen: every session of the account is revoked.
type SessionManager struct {
	store    AccountStore
	codec    TokenCodec
	notifier realtime.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewSessionManager constructs a [SessionManager]. metrics may be nil.
func NewSessionManager(store AccountStore, codec TokenCodec, notifier realtime.Notifier, recorder *metrics.Metrics) *SessionManager {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	return &SessionManager{
		store:    store,
		codec:    codec,
		notifier: notifier,
		metrics:  recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// # Session Lifecycle

/*
Open issues a token pair and records the refresh digest.

Description: This is the login path shared by register, login and Google
sign-in. The caller has already checked the account is usable.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - *TokenPair: Fresh access and refresh tokens
  - error: Signing or storage failures
*/
func (manager *SessionManager) Open(context context.Context, account *Account) (*TokenPair, error) {
	pair, digest, err := manager.issue(account)
	if err != nil {
		return nil, err
	}

	if err := manager.store.AddSession(context, account.ID, digest, manager.now()); err != nil {
		return nil, fmt.Errorf("session_manager_add_session_failed: %w", err)
	}

	return pair, nil
}

/*
Refresh rotates a refresh token into a new pair.

Description:
 1. Verify signature and expiry.
 2. Load the account; reject deleted or blocked accounts.
 3. Atomically swap the presented digest for the new one.
 4. If the digest is gone, revoke everything and report the compromise.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: Rotated tokens
  - error: Unauthorized, Forbidden, SessionCompromised or internal failures
*/
func (manager *SessionManager) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := manager.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		manager.metrics.AuthEvent(metricRefresh, metrics.OutcomeFailure)
		return nil, apperr.Unauthorized(MsgInvalidRefreshToken)
	}

	account, err := manager.store.FindByID(context, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, apperr.Unauthorized(MsgAccountGone)
		}
		return nil, fmt.Errorf("session_manager_refresh_load_failed: %w", err)
	}

	if account.IsBlocked() {
		return nil, apperr.Forbidden(MsgAccountBlocked)
	}

	// The new pair carries the current role, not the one in the old token
	pair, digest, err := manager.issue(account)
	if err != nil {
		return nil, err
	}

	err = manager.store.RotateSession(context, account.ID, sec.HashToken(refreshToken), digest, manager.now())
	if errors.Is(err, ErrSessionNotFound) {
		manager.compromised(context, account.ID)
		return nil, apperr.SessionCompromised()
	}
	if err != nil {
		return nil, fmt.Errorf("session_manager_rotate_failed: %w", err)
	}

	manager.metrics.AuthEvent(metricRefresh, metrics.OutcomeSuccess)
	return pair, nil
}

// compromised revokes every session after a replayed refresh token.
func (manager *SessionManager) compromised(context context.Context, accountID string) {
	logger := ctxutil.GetLogger(context)

	logger.Warn().
		Str("account_id", accountID).
		Msg("refresh_token_reuse_detected")

	if err := manager.store.ClearSessions(context, accountID); err != nil {
		logger.Error().Err(err).Str("account_id", accountID).Msg("refresh_reuse_clear_sessions_failed")
	}

	manager.metrics.RefreshReuse()
	manager.metrics.AuthEvent(metricRefresh, metrics.OutcomeFailure)
	manager.notifier.Notify(context, accountID, EventSessionCompromised, map[string]string{
		"reason": "refresh_token_reuse",
	})
}

/*
Close removes one refresh token from the set.

Description: Idempotent. Unknown accounts, unknown tokens and an empty token
are all successful no-ops.
*/
func (manager *SessionManager) Close(context context.Context, accountID, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := manager.store.RemoveSession(context, accountID, sec.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("session_manager_close_failed: %w", err)
	}
	return nil
}

// CloseAll revokes every session of the account.
func (manager *SessionManager) CloseAll(context context.Context, accountID string) error {
	if err := manager.store.ClearSessions(context, accountID); err != nil {
		return fmt.Errorf("session_manager_close_all_failed: %w", err)
	}
	manager.notifier.Notify(context, accountID, EventSessionsRevoked, nil)
	return nil
}

// Prune drops session entries older than the refresh-token lifetime.
func (manager *SessionManager) Prune(context context.Context, refreshTTL time.Duration) error {
	if err := manager.store.PruneSessions(context, manager.now().Add(-refreshTTL)); err != nil {
		return fmt.Errorf("session_manager_prune_failed: %w", err)
	}
	return nil
}

// # Administration

/*
Block sets the block timestamp and clears sessions in one store update.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Account: The blocked account
  - error: NotFound, Validation (admin target) or internal failures
*/
func (manager *SessionManager) Block(context context.Context, accountID string) (*Account, error) {
	account, err := manager.load(context, accountID)
	if err != nil {
		return nil, err
	}

	if account.Role == sec.RoleAdmin {
		return nil, apperr.ValidationError(MsgCannotBlockAdmin)
	}

	blockedAt := manager.now()
	if err := manager.store.SetBlocked(context, account.ID, &blockedAt); err != nil {
		return nil, fmt.Errorf("session_manager_block_failed: %w", err)
	}
	account.BlockedAt = &blockedAt

	ctxutil.GetLogger(context).Info().Str("target_id", account.ID).Msg("account_blocked")
	manager.notifier.Notify(context, account.ID, EventAccountBlocked, nil)
	return account, nil
}

// Unblock clears the block timestamp. The session set is already empty.
func (manager *SessionManager) Unblock(context context.Context, accountID string) (*Account, error) {
	account, err := manager.load(context, accountID)
	if err != nil {
		return nil, err
	}

	if err := manager.store.SetBlocked(context, account.ID, nil); err != nil {
		return nil, fmt.Errorf("session_manager_unblock_failed: %w", err)
	}
	account.BlockedAt = nil

	ctxutil.GetLogger(context).Info().Str("target_id", account.ID).Msg("account_unblocked")
	return account, nil
}

// # Helpers

func (manager *SessionManager) load(context context.Context, accountID string) (*Account, error) {
	account, err := manager.store.FindByID(context, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, apperr.NotFound(MsgAccountGone)
		}
		return nil, fmt.Errorf("session_manager_load_failed: %w", err)
	}
	return account, nil
}

// issue signs a pair for account and returns the refresh digest to store.
func (manager *SessionManager) issue(account *Account) (*TokenPair, string, error) {
	accessToken, err := manager.codec.IssueAccessToken(account.ID, account.Role)
	if err != nil {
		return nil, "", fmt.Errorf("session_manager_access_token_failed: %w", err)
	}

	refreshToken, err := manager.codec.IssueRefreshToken(account.ID, account.Role)
	if err != nil {
		return nil, "", fmt.Errorf("session_manager_refresh_token_failed: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, sec.HashToken(refreshToken), nil
}
