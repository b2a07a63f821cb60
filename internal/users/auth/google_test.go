// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

/*
TestGoogleVerifier_AccessToken runs the userinfo path against a local server.
*/
func TestGoogleVerifier_AccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/oauth2/v2/userinfo" || request.Header.Get("Authorization") != "Bearer good-token" {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusUnauthorized)
			_, _ = writer.Write([]byte(`{"error":{"code":401,"message":"invalid credentials"}}`))
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"id":      "g-900",
			"email":   "worker@gmail.com",
			"name":    "Worker One",
			"picture": "https://lh3.example/w.png",
		})
	}))
	defer server.Close()

	verifier := auth.NewGoogleVerifier("client-id", auth.WithClientOptions(option.WithEndpoint(server.URL+"/")))

	// 1. Accepted token
	profile, err := verifier.Verify(context.Background(), "good-token", auth.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, &auth.ExternalProfile{
		ExternalID: "g-900",
		Email:      "worker@gmail.com",
		Name:       "Worker One",
		Avatar:     "https://lh3.example/w.png",
	}, profile)

	// 2. Rejected token
	_, err = verifier.Verify(context.Background(), "bad-token", auth.TokenKindAccess)
	assert.Equal(t, http.StatusUnauthorized, appStatus(err))
	assert.EqualError(t, err, auth.MsgInvalidGoogleAccess)
}

/*
TestGoogleVerifier_IDToken maps the validated payload and checks the audience.
*/
func TestGoogleVerifier_IDToken(t *testing.T) {
	var audience string
	validator := func(_ context.Context, token, aud string) (*idtoken.Payload, error) {
		audience = aud
		if token != "signed" {
			return nil, errors.New("idtoken: invalid signature")
		}
		return &idtoken.Payload{
			Subject: "g-901",
			Claims: map[string]any{
				"email":   "leader@gmail.com",
				"name":    "Team Leader",
				"picture": "https://lh3.example/l.png",
			},
		}, nil
	}
	verifier := auth.NewGoogleVerifier("client-id", auth.WithIDTokenValidator(validator))

	// 1. Valid
	profile, err := verifier.Verify(context.Background(), "signed", auth.TokenKindID)
	require.NoError(t, err)
	assert.Equal(t, "client-id", audience)
	assert.Equal(t, "g-901", profile.ExternalID)
	assert.Equal(t, "leader@gmail.com", profile.Email)
	assert.Equal(t, "Team Leader", profile.Name)

	// 2. Invalid
	_, err = verifier.Verify(context.Background(), "forged", auth.TokenKindID)
	assert.Equal(t, http.StatusUnauthorized, appStatus(err))
	assert.EqualError(t, err, auth.MsgInvalidGoogleID)

	// 3. Unknown kind
	_, err = verifier.Verify(context.Background(), "signed", "code")
	assert.Equal(t, http.StatusBadRequest, appStatus(err))
}
