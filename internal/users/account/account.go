// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles profile upkeep and the administrative side of user accounts.

Members update their own profile. Administrators inspect accounts, block and
unblock them, change roles and read role statistics.

# Architecture

  - Domain: This package depends on the auth package for the Account entity,
    its store and the session manager. Blocking always goes through
    [auth.SessionManager] so the session set is cleared in the same write.
  - Security: Every route requires the access guard; administrative routes
    additionally require the admin role.
*/
package account

import (
	"context"

	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

// # Contracts

// AccountStore is the subset of [auth.AccountStore] this package needs.
type AccountStore interface {
	FindByID(context context.Context, id string) (*auth.Account, error)
	Save(context context.Context, account *auth.Account) error
	CountByRole(context context.Context) (map[sec.Role]int, error)
}

// Blocker blocks and unblocks accounts. [auth.SessionManager] implements it.
type Blocker interface {
	Block(context context.Context, accountID string) (*auth.Account, error)
	Unblock(context context.Context, accountID string) (*auth.Account, error)
}

// # Inputs & Views

// ProfileInput holds the self-service fields. Nil pointers are left unchanged.
type ProfileInput struct {
	Name   *string
	Phone  *string
	Avatar *string
}

// RoleStats counts accounts per role. Every role is present, zero included.
type RoleStats map[sec.Role]int

// # Notification Events

const (
	EventRoleChanged    = "account.role_changed"
	EventProfileUpdated = "account.profile_updated"
)

// # Client Messages

const (
	MsgAccountNotFound = "User not found"
	MsgBlocked         = "User blocked successfully"
	MsgUnblocked       = "User unblocked successfully"
	MsgRoleChanged     = "User role updated"
	MsgProfileUpdated  = "Profile updated"
	MsgEmptyProfile    = "At least one field must be provided"
)
