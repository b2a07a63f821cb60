// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/realtime"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

// # Service Layer

// Service orchestrates profile changes and account administration.
type Service struct {
	store    AccountStore
	blocker  Blocker
	notifier realtime.Notifier
}

// NewService constructs a new [Service]. notifier may be nil.
func NewService(store AccountStore, blocker Blocker, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	return &Service{store: store, blocker: blocker, notifier: notifier}
}

// # Profile Management

/*
GetAccount returns the public view of any account.

Returns:
  - *auth.PublicAccount: The account
  - error: NotFound or storage failures
*/
func (service *Service) GetAccount(context context.Context, accountID string) (*auth.PublicAccount, error) {
	account, err := service.load(context, accountID)
	if err != nil {
		return nil, err
	}
	return account.Public(), nil
}

/*
UpdateProfile applies a partial set of changes to the caller's own profile.

Description: Fetches the current state, overrides the provided fields and
saves. Email, role, identity number and block state are never touched here.

Parameters:
  - context: context.Context
  - accountID: string
  - input: ProfileInput

Returns:
  - *auth.PublicAccount: The updated profile
  - error: Validation, NotFound or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, accountID string, input ProfileInput) (*auth.PublicAccount, error) {
	if input.Name == nil && input.Phone == nil && input.Avatar == nil {
		return nil, apperr.ValidationError(MsgEmptyProfile)
	}

	account, err := service.load(context, accountID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.Phone != nil {
		account.Phone = *input.Phone
	}
	if input.Avatar != nil {
		account.Avatar = *input.Avatar
	}

	if err := service.store.Save(context, account); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	ctxutil.GetLogger(context).Info().Str("account_id", accountID).Msg("account_profile_updated")
	service.notifier.Notify(context, accountID, EventProfileUpdated, nil)

	return account.Public(), nil
}

// # Administration

// Block blocks an account and revokes all of its sessions. Admins cannot be blocked.
func (service *Service) Block(context context.Context, accountID string) (*auth.PublicAccount, error) {
	account, err := service.blocker.Block(context, accountID)
	if err != nil {
		return nil, err
	}
	return account.Public(), nil
}

// Unblock lifts a block. Revoked sessions stay revoked.
func (service *Service) Unblock(context context.Context, accountID string) (*auth.PublicAccount, error) {
	account, err := service.blocker.Unblock(context, accountID)
	if err != nil {
		return nil, err
	}
	return account.Public(), nil
}

/*
ChangeRole assigns any of the four roles, admin included.

Description: Guards read the role from the loaded account, so the change
applies to the next request even with an older access token.

Returns:
  - *auth.PublicAccount: The updated account
  - error: Validation (unknown role), NotFound or storage failures
*/
func (service *Service) ChangeRole(context context.Context, accountID string, role sec.Role) (*auth.PublicAccount, error) {
	if !role.Valid() {
		return nil, apperr.ValidationError("Invalid role")
	}

	account, err := service.load(context, accountID)
	if err != nil {
		return nil, err
	}

	previous := account.Role
	account.Role = role
	if err := service.store.Save(context, account); err != nil {
		return nil, fmt.Errorf("account_service_change_role_failed: %w", err)
	}

	ctxutil.GetLogger(context).Info().
		Str("target_id", accountID).
		Str("from", previous.String()).
		Str("to", role.String()).
		Msg("account_role_changed")
	service.notifier.Notify(context, accountID, EventRoleChanged, map[string]string{"role": role.String()})

	return account.Public(), nil
}

// RoleStats returns the number of accounts per role.
func (service *Service) RoleStats(context context.Context) (RoleStats, error) {
	counts, err := service.store.CountByRole(context)
	if err != nil {
		return nil, fmt.Errorf("account_service_role_stats_failed: %w", err)
	}

	stats := make(RoleStats, len(sec.Roles()))
	for _, role := range sec.Roles() {
		stats[role] = counts[role]
	}
	return stats, nil
}

// # Helpers

func (service *Service) load(context context.Context, accountID string) (*auth.Account, error) {
	account, err := service.store.FindByID(context, accountID)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, apperr.NotFound(MsgAccountNotFound)
		}
		return nil, fmt.Errorf("account_service_load_failed: %w", err)
	}
	return account, nil
}
