// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements identity and session management for ShiftSphere.

It defines the Account entity, the [AccountStore] contract with its Postgres,
Mongo and in-memory implementations, the [SessionManager] that owns refresh
token rotation, and the [Service] that orchestrates registration, login,
Google sign-in and the one-time token flows.

# Architecture

  - Store: the only path to persisted accounts. Session set mutations are atomic.
  - SessionManager: issues token pairs and detects refresh-token reuse.
  - Service: business flows. Translates store errors into [apperr.AppError].
  - Handler: the /auth HTTP surface.
*/
package auth

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// # Domain Entities

// Provider identifies the credential path an account was created or linked with.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

// Purpose selects which one-time token slot an operation acts on.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// OneTimeToken is the stored half of a one-time secret.
// Only the SHA-256 digest is persisted; the plaintext travels by email.
type OneTimeToken struct {
	Digest    string
	ExpiresAt time.Time
}

// Active reports whether the token is set and not yet expired at now.
func (t *OneTimeToken) Active(now time.Time) bool {
	return t != nil && t.Digest != "" && now.Before(t.ExpiresAt)
}

// Account is a ShiftSphere identity record.
//
// PasswordHash is empty for accounts that only sign in through Google.
// ExternalID is empty until a Google identity is linked. The refresh-token
// set is owned by the store and never loaded onto the entity.
type Account struct {
	ID               string
	Email            string
	PasswordHash     string
	Name             string
	NationalIDNumber string
	Phone            string
	Role             sec.Role
	Avatar           string
	ExternalID       string
	Provider         Provider
	EmailVerified    bool
	VerifyToken      *OneTimeToken
	ResetToken       *OneTimeToken
	BlockedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubjectID implements [sec.Subject].
func (a *Account) SubjectID() string { return a.ID }

// SubjectRole implements [sec.Subject].
func (a *Account) SubjectRole() sec.Role { return a.Role }

// IsBlocked implements [sec.Subject].
func (a *Account) IsBlocked() bool { return a.BlockedAt != nil }

// HasPassword reports whether the local credential path is usable.
func (a *Account) HasPassword() bool { return a.PasswordHash != "" }

// oneTimeToken returns the slot for purpose.
func (a *Account) oneTimeToken(purpose Purpose) *OneTimeToken {
	if purpose == PurposeResetPassword {
		return a.ResetToken
	}
	return a.VerifyToken
}

// setOneTimeToken replaces the slot for purpose. A nil token clears it.
func (a *Account) setOneTimeToken(purpose Purpose, token *OneTimeToken) {
	if purpose == PurposeResetPassword {
		a.ResetToken = token
		return
	}
	a.VerifyToken = token
}

// clone returns a deep copy so callers never share pointers with a store.
func (a *Account) clone() *Account {
	copied := *a
	if a.VerifyToken != nil {
		token := *a.VerifyToken
		copied.VerifyToken = &token
	}
	if a.ResetToken != nil {
		token := *a.ResetToken
		copied.ResetToken = &token
	}
	if a.BlockedAt != nil {
		at := *a.BlockedAt
		copied.BlockedAt = &at
	}
	return &copied
}

// # Public View

// PublicAccount is the client-facing projection of an [Account].
//
// It never carries the password hash, one-time token state or sessions.
type PublicAccount struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             sec.Role   `json:"role"`
	Phone            string     `json:"phone,omitempty"`
	NationalIDNumber string     `json:"nationalIdNumber,omitempty"`
	Avatar           string     `json:"avatarPath,omitempty"`
	AuthProvider     Provider   `json:"authProvider"`
	EmailVerified    bool       `json:"emailVerified"`
	BlockedAt        *time.Time `json:"blockedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Public returns the client-safe view of the account.
func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:               a.ID,
		Email:            a.Email,
		Name:             a.Name,
		Role:             a.Role,
		Phone:            a.Phone,
		NationalIDNumber: a.NationalIDNumber,
		Avatar:           a.Avatar,
		AuthProvider:     a.Provider,
		EmailVerified:    a.EmailVerified,
		BlockedAt:        a.BlockedAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// # Normalization

// NormalizeEmail trims, NFKC-normalizes and lower-cases an address so that
// lookups are case-insensitive and visually identical forms collide.
func NormalizeEmail(email string) string {
	// Casers carry state and are not shared between goroutines
	return cases.Lower(language.Und).String(norm.NFKC.String(strings.TrimSpace(email)))
}

// localPart returns the portion of email before '@'.
func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
