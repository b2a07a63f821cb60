// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// DefaultBcryptCost matches the cost previously used for stored hashes.
const DefaultBcryptCost = 12

const argon2Prefix = "$argon2"

// PasswordHasher hashes new passwords with the configured algorithm and
// verifies hashes produced by either algorithm.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon      argon2.Config
}

// NewPasswordHasher returns a hasher for algorithm ("bcrypt" or "argon2id").
// A non-positive bcryptCost falls back to [DefaultBcryptCost].
func NewPasswordHasher(algorithm string, bcryptCost int) (*PasswordHasher, error) {
	if algorithm != HashBcrypt && algorithm != HashArgon2id {
		return nil, fmt.Errorf("sec: unknown password hash algorithm %q", algorithm)
	}
	if bcryptCost <= 0 {
		bcryptCost = DefaultBcryptCost
	}
	return &PasswordHasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon:      argon2.DefaultConfig(),
	}, nil
}

// HashPassword hashes a plain-text password.
func (hasher *PasswordHasher) HashPassword(plainTextPassword string) (string, error) {
	if hasher.algorithm == HashArgon2id {
		encoded, err := hasher.argon.HashEncoded([]byte(plainTextPassword))
		if err != nil {
			return "", fmt.Errorf("sec: failed to hash password: %w", err)
		}
		return string(encoded), nil
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with an encoded hash.
// An empty hash never matches.
func (hasher *PasswordHasher) CheckPasswordHash(plainTextPassword, existingHash string) bool {
	if existingHash == "" {
		return false
	}

	if strings.HasPrefix(existingHash, argon2Prefix) {
		ok, err := argon2.VerifyEncoded([]byte(plainTextPassword), []byte(existingHash))
		return err == nil && ok
	}

	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
