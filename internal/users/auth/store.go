// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// # Store Errors

var (
	// ErrAccountNotFound is returned when no account matches a lookup or a
	// one-time token digest.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSessionNotFound is returned by RotateSession when the presented digest
	// is not in the account's session set.
	ErrSessionNotFound = errors.New("session not found")
)

// DuplicateKeyError reports a uniqueness violation on Field.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s", e.Field)
}

// IsDuplicateKey reports whether err is a [DuplicateKeyError] and returns the field.
func IsDuplicateKey(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}

// # Account Data Access

// AccountStore is the only contract the identity core uses against persisted accounts.
//
// Emails are stored normalized with [NormalizeEmail]. Implementations must make
// every session set mutation atomic per account.
type AccountStore interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrAccountNotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrAccountNotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	// FindByExternalID returns the account linked to a Google subject.
	FindByExternalID(context context.Context, externalID string) (*Account, error)

	/*
		FindByEmailOrExternalID returns the account matching either key.

		Description: When both match different records the external id wins,
		because a linked identity is the stronger claim.
	*/
	FindByEmailOrExternalID(context context.Context, email, externalID string) (*Account, error)

	// FindByNationalID returns the account registered with the given national ID number.
	FindByNationalID(context context.Context, nationalID string) (*Account, error)

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - account: *Account (ID and timestamps are assigned when empty)

		Returns:
		  - error: *DuplicateKeyError on email, national ID or external ID collisions
	*/
	Create(context context.Context, account *Account) error

	/*
		Save replaces the profile and credential fields of an existing account.

		Description: The session set, the block timestamp and the one-time
		token slots are never written by Save, and EmailVerified never goes
		back to false. A stale copy cannot undo a concurrent rotation, block,
		token consumption or verification.

		Returns:
		  - error: ErrAccountNotFound, *DuplicateKeyError or storage failures
	*/
	Save(context context.Context, account *Account) error

	/*
		ConsumeOneTimeToken atomically matches an unexpired digest for purpose,
		clears it and returns the updated account.

		Parameters:
		  - context: context.Context
		  - purpose: Purpose
		  - digest: string (SHA-256 hex of the presented plaintext)
		  - now: time.Time

		Returns:
		  - *Account: The matched account with the slot already cleared
		  - error: ErrAccountNotFound when nothing matches
	*/
	ConsumeOneTimeToken(context context.Context, purpose Purpose, digest string, now time.Time) (*Account, error)

	/*
		SetOneTimeToken replaces the slot for purpose. A nil token clears it.

		Returns:
		  - error: ErrAccountNotFound or storage failures
	*/
	SetOneTimeToken(context context.Context, accountID string, purpose Purpose, token *OneTimeToken) error

	// # Session Set

	// AddSession appends a refresh-token digest to the account's session set.
	AddSession(context context.Context, accountID, digest string, issuedAt time.Time) error

	/*
		RotateSession replaces oldDigest with newDigest in one atomic step.

		Returns:
		  - error: ErrSessionNotFound if oldDigest is absent; nothing changes then
	*/
	RotateSession(context context.Context, accountID, oldDigest, newDigest string, issuedAt time.Time) error

	// RemoveSession deletes one digest. Missing accounts or digests are not errors.
	RemoveSession(context context.Context, accountID, digest string) error

	// ClearSessions empties the session set.
	ClearSessions(context context.Context, accountID string) error

	// CountSessions returns the size of the session set.
	CountSessions(context context.Context, accountID string) (int, error)

	// PruneSessions drops entries issued before cutoff across all accounts.
	// Their refresh tokens have already expired and can never rotate.
	PruneSessions(context context.Context, cutoff time.Time) error

	// # Administration

	/*
		SetBlocked sets or clears the block timestamp.

		Description: Blocking also empties the session set in the same atomic
		update. Unblocking leaves the (already empty) set alone.

		Returns:
		  - error: ErrAccountNotFound or storage failures
	*/
	SetBlocked(context context.Context, accountID string, at *time.Time) error

	// CountByRole returns the number of accounts per role.
	CountByRole(context context.Context) (map[sec.Role]int, error)
}
