// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(CodecConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "shiftsphere.test",
		Audience:      "shiftsphere-test",
	})
	require.NoError(t, err)
	return codec
}

/*
TestTokenCodec_RoundTrip verifies that issued tokens carry the account id and role.
*/
func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	// 1. Access token
	access, err := codec.IssueAccessToken("acc-1", RoleCompany)
	require.NoError(t, err)

	claims, err := codec.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, RoleCompany, claims.Role)
	assert.NotEmpty(t, claims.ID)

	// 2. Refresh token
	refresh, err := codec.IssueRefreshToken("acc-1", RoleCompany)
	require.NoError(t, err)

	claims, err = codec.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
}

/*
TestTokenCodec_SecretSeparation ensures a token of one kind never verifies as the other.
*/
func TestTokenCodec_SecretSeparation(t *testing.T) {
	codec := newTestCodec(t)

	access, err := codec.IssueAccessToken("acc-1", RoleNormal)
	require.NoError(t, err)
	refresh, err := codec.IssueRefreshToken("acc-1", RoleNormal)
	require.NoError(t, err)

	_, err = codec.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = codec.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

/*
TestTokenCodec_UniquePerIssue checks that two tokens minted back to back differ.
*/
func TestTokenCodec_UniquePerIssue(t *testing.T) {
	codec := newTestCodec(t)
	fixed := time.Now()
	codec.now = func() time.Time { return fixed }

	first, err := codec.IssueRefreshToken("acc-1", RoleNormal)
	require.NoError(t, err)
	second, err := codec.IssueRefreshToken("acc-1", RoleNormal)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestTokenCodec_Expired maps an elapsed exp claim to ErrTokenExpired.
*/
func TestTokenCodec_Expired(t *testing.T) {
	codec := newTestCodec(t)

	// 1. Issue in the past
	codec.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := codec.IssueAccessToken("acc-1", RoleNormal)
	require.NoError(t, err)

	// 2. Verify in the present
	codec.now = time.Now
	_, err = codec.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

/*
TestTokenCodec_Rejects covers tampered, foreign, and wrongly signed tokens.
*/
func TestTokenCodec_Rejects(t *testing.T) {
	codec := newTestCodec(t)
	valid, err := codec.IssueAccessToken("acc-1", RoleNormal)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, AuthClaims{AccountID: "acc-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreignIssuer, err := NewTokenCodec(CodecConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "someone-else",
		Audience:      "shiftsphere-test",
	})
	require.NoError(t, err)
	foreign, err := foreignIssuer.IssueAccessToken("acc-1", RoleNormal)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered_signature", valid[:len(valid)-2] + "xx"},
		{"tampered_payload", strings.Replace(valid, ".", ".e", 1)},
		{"alg_none", noneToken},
		{"wrong_issuer", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.VerifyAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

/*
TestNewTokenCodec_Config rejects unsafe configurations.
*/
func TestNewTokenCodec_Config(t *testing.T) {
	_, err := NewTokenCodec(CodecConfig{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenCodec(CodecConfig{AccessSecret: "", RefreshSecret: "x", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenCodec(CodecConfig{AccessSecret: "a", RefreshSecret: "b"})
	assert.Error(t, err)
}
