// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from
// the domain logic. It is injected into the application layer through small
// interfaces such as middleware.TokenVerifier.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired is returned when a token's exp claim is in the past.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for any other verification failure.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside access and refresh tokens.
//
// Claim names are abbreviated to keep the JWT payload small.
type AuthClaims struct {
	jwt.RegisteredClaims

	AccountID string `json:"uid"`
	Role      Role   `json:"rol"`
}

// CodecConfig configures a [TokenCodec].
type CodecConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// TokenCodec signs and verifies access and refresh tokens using HS256.
//
// # Key Separation
//
// Access and refresh tokens are signed with distinct secrets, so a token of one
// kind never verifies as the other.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	now           func() time.Time
}

// NewTokenCodec validates cfg and returns a ready codec.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("sec: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("sec: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("sec: token lifetimes must be positive")
	}

	return &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (codec *TokenCodec) AccessTTL() time.Duration { return codec.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (codec *TokenCodec) RefreshTTL() time.Duration { return codec.refreshTTL }

// IssueAccessToken signs a short-lived token carrying accountID and role.
func (codec *TokenCodec) IssueAccessToken(accountID string, role Role) (string, error) {
	return codec.sign(accountID, role, codec.accessSecret, codec.accessTTL)
}

// IssueRefreshToken signs a long-lived token carrying accountID and role.
func (codec *TokenCodec) IssueRefreshToken(accountID string, role Role) (string, error) {
	return codec.sign(accountID, role, codec.refreshSecret, codec.refreshTTL)
}

// VerifyAccessToken checks signature, expiry, issuer and audience of an access token.
func (codec *TokenCodec) VerifyAccessToken(token string) (*AuthClaims, error) {
	return codec.verify(token, codec.accessSecret)
}

// VerifyRefreshToken checks signature, expiry, issuer and audience of a refresh token.
func (codec *TokenCodec) VerifyRefreshToken(token string) (*AuthClaims, error) {
	return codec.verify(token, codec.refreshSecret)
}

func (codec *TokenCodec) sign(accountID string, role Role, secret []byte, ttl time.Duration) (string, error) {
	issuedAt := codec.now()

	// Every token gets its own jti so that two tokens minted in the same
	// second for the same account are still distinct strings.
	tokenID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate token id: %w", err)
	}

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Subject:   accountID,
			Issuer:    codec.issuer,
			Audience:  jwt.ClaimStrings{codec.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		AccountID: accountID,
		Role:      role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signed, nil
}

func (codec *TokenCodec) verify(tokenString string, secret []byte) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(codec.issuer),
		jwt.WithAudience(codec.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(codec.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.AccountID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
