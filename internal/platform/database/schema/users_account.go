// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds table and column names for hand-written SQL.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                string
	ID                   string
	Email                string
	Password             string
	Name                 string
	NationalIDNumber     string
	Phone                string
	Role                 string
	Avatar               string
	ExternalID           string
	Provider             string
	EmailVerified        string
	VerifyTokenDigest    string
	VerifyTokenExpiresAt string
	ResetTokenDigest     string
	ResetTokenExpiresAt  string
	BlockedAt            string
	CreatedAt            string
	UpdatedAt            string

	// Unique constraint names, used to map violations back to fields
	EmailKey            string
	NationalIDNumberKey string
	ExternalIDKey       string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                "users.account",
	ID:                   "id",
	Email:                "email",
	Password:             "passwordhash",
	Name:                 "name",
	NationalIDNumber:     "nationalidnumber",
	Phone:                "phone",
	Role:                 "role",
	Avatar:               "avatar",
	ExternalID:           "externalid",
	Provider:             "provider",
	EmailVerified:        "emailverified",
	VerifyTokenDigest:    "verifytokendigest",
	VerifyTokenExpiresAt: "verifytokenexpiresat",
	ResetTokenDigest:     "resettokendigest",
	ResetTokenExpiresAt:  "resettokenexpiresat",
	BlockedAt:            "blockedat",
	CreatedAt:            "createdat",
	UpdatedAt:            "updatedat",

	EmailKey:            "account_email_key",
	NationalIDNumberKey: "account_nationalidnumber_key",
	ExternalIDKey:       "account_externalid_key",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.Name, t.NationalIDNumber, t.Phone, t.Role,
		t.Avatar, t.ExternalID, t.Provider, t.EmailVerified,
		t.VerifyTokenDigest, t.VerifyTokenExpiresAt, t.ResetTokenDigest, t.ResetTokenExpiresAt,
		t.BlockedAt, t.CreatedAt, t.UpdatedAt,
	}
}
