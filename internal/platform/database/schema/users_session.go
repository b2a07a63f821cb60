// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserSessionTable represents the 'users.account_session' table.
// One row per outstanding refresh token, keyed by its digest.
type UserSessionTable struct {
	Table       string
	TokenDigest string
	AccountID   string
	IssuedAt    string
}

// UserSession is the schema definition for users.account_session
var UserSession = UserSessionTable{
	Table:       "users.account_session",
	TokenDigest: "tokendigest",
	AccountID:   "accountid",
	IssuedAt:    "issuedat",
}

// Columns returns all standard column names
func (t UserSessionTable) Columns() []string {
	return []string{t.TokenDigest, t.AccountID, t.IssuedAt}
}
