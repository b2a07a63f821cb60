// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/pkg/uuid"
)

// MemoryAccountStore is a process-local [AccountStore] for development and tests.
//
// A single mutex serializes all operations, which gives every method the same
// atomicity the database-backed stores get from conditional updates.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	sessions map[string]map[string]time.Time
}

// NewMemoryAccountStore returns an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]*Account),
		sessions: make(map[string]map[string]time.Time),
	}
}

// # Lookups

func (store *MemoryAccountStore) FindByID(_ context.Context, id string) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	account, ok := store.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account.clone(), nil
}

func (store *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	return store.findFirst(func(account *Account) bool { return account.Email == email })
}

func (store *MemoryAccountStore) FindByExternalID(_ context.Context, externalID string) (*Account, error) {
	if externalID == "" {
		return nil, ErrAccountNotFound
	}
	return store.findFirst(func(account *Account) bool { return account.ExternalID == externalID })
}

func (store *MemoryAccountStore) FindByEmailOrExternalID(ctx context.Context, email, externalID string) (*Account, error) {
	account, err := store.FindByExternalID(ctx, externalID)
	if err == nil {
		return account, nil
	}
	return store.FindByEmail(ctx, email)
}

func (store *MemoryAccountStore) FindByNationalID(_ context.Context, nationalID string) (*Account, error) {
	if nationalID == "" {
		return nil, ErrAccountNotFound
	}
	return store.findFirst(func(account *Account) bool { return account.NationalIDNumber == nationalID })
}

func (store *MemoryAccountStore) findFirst(match func(*Account) bool) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, account := range store.accounts {
		if match(account) {
			return account.clone(), nil
		}
	}
	return nil, ErrAccountNotFound
}

// # Writes

func (store *MemoryAccountStore) Create(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New()
	}
	if err := store.checkUnique(account); err != nil {
		return err
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	store.accounts[account.ID] = account.clone()
	store.sessions[account.ID] = make(map[string]time.Time)
	return nil
}

func (store *MemoryAccountStore) Save(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[account.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if err := store.checkUnique(account); err != nil {
		return err
	}

	account.UpdatedAt = time.Now().UTC()
	saved := account.clone()
	saved.BlockedAt = existing.BlockedAt
	saved.CreatedAt = existing.CreatedAt
	saved.VerifyToken = existing.VerifyToken
	saved.ResetToken = existing.ResetToken
	saved.EmailVerified = existing.EmailVerified || account.EmailVerified
	store.accounts[account.ID] = saved
	return nil
}

func (store *MemoryAccountStore) SetOneTimeToken(_ context.Context, accountID string, purpose Purpose, token *OneTimeToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if token != nil {
		copied := *token
		token = &copied
	}
	existing.setOneTimeToken(purpose, token)
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// checkUnique must be called with mu held.
func (store *MemoryAccountStore) checkUnique(candidate *Account) error {
	for id, existing := range store.accounts {
		if id == candidate.ID {
			continue
		}
		switch {
		case existing.Email == candidate.Email:
			return &DuplicateKeyError{Field: FieldEmail}
		case candidate.NationalIDNumber != "" && existing.NationalIDNumber == candidate.NationalIDNumber:
			return &DuplicateKeyError{Field: FieldNationalIDNumber}
		case candidate.ExternalID != "" && existing.ExternalID == candidate.ExternalID:
			return &DuplicateKeyError{Field: FieldExternalID}
		}
	}
	return nil
}

func (store *MemoryAccountStore) ConsumeOneTimeToken(_ context.Context, purpose Purpose, digest string, now time.Time) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, account := range store.accounts {
		token := account.oneTimeToken(purpose)
		if token.Active(now) && token.Digest == digest {
			account.setOneTimeToken(purpose, nil)
			account.UpdatedAt = now
			return account.clone(), nil
		}
	}
	return nil, ErrAccountNotFound
}

// # Session Set

func (store *MemoryAccountStore) AddSession(_ context.Context, accountID, digest string, issuedAt time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	set, ok := store.sessions[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	set[digest] = issuedAt
	return nil
}

func (store *MemoryAccountStore) RotateSession(_ context.Context, accountID, oldDigest, newDigest string, issuedAt time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	set := store.sessions[accountID]
	if _, ok := set[oldDigest]; !ok {
		return ErrSessionNotFound
	}
	delete(set, oldDigest)
	set[newDigest] = issuedAt
	return nil
}

func (store *MemoryAccountStore) RemoveSession(_ context.Context, accountID, digest string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.sessions[accountID], digest)
	return nil
}

func (store *MemoryAccountStore) ClearSessions(_ context.Context, accountID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.sessions[accountID]; ok {
		store.sessions[accountID] = make(map[string]time.Time)
	}
	return nil
}

func (store *MemoryAccountStore) CountSessions(_ context.Context, accountID string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	return len(store.sessions[accountID]), nil
}

func (store *MemoryAccountStore) PruneSessions(_ context.Context, cutoff time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, set := range store.sessions {
		for digest, issuedAt := range set {
			if issuedAt.Before(cutoff) {
				delete(set, digest)
			}
		}
	}
	return nil
}

// # Administration

func (store *MemoryAccountStore) SetBlocked(_ context.Context, accountID string, at *time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	account, ok := store.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}

	account.BlockedAt = nil
	if at != nil {
		blockedAt := *at
		account.BlockedAt = &blockedAt
		store.sessions[accountID] = make(map[string]time.Time)
	}
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (store *MemoryAccountStore) CountByRole(context.Context) (map[sec.Role]int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	counts := make(map[sec.Role]int)
	for _, account := range store.accounts {
		counts[account.Role]++
	}
	return counts, nil
}
