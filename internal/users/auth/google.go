// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
)

// # Contracts & Types

// ExternalProfile is the identity an external provider vouches for.
type ExternalProfile struct {
	ExternalID string
	Email      string
	Name       string
	Avatar     string
}

// ExternalVerifier checks a provider-issued token and returns the profile behind it.
type ExternalVerifier interface {
	Verify(context context.Context, token, kind string) (*ExternalProfile, error)
}

// IDTokenValidator matches [idtoken.Validate].
type IDTokenValidator func(context context.Context, token, audience string) (*idtoken.Payload, error)

// # Google

// GoogleVerifier verifies Google ID tokens offline and access tokens against
// the userinfo endpoint.
type GoogleVerifier struct {
	clientID      string
	validate      IDTokenValidator
	clientOptions []option.ClientOption
}

// GoogleOption customises a [GoogleVerifier].
type GoogleOption func(*GoogleVerifier)

// WithIDTokenValidator replaces the ID token check. Tests use it to avoid
// fetching Google's signing certificates.
func WithIDTokenValidator(validate IDTokenValidator) GoogleOption {
	return func(verifier *GoogleVerifier) { verifier.validate = validate }
}

// WithClientOptions adds options to the userinfo API client, e.g. an endpoint override.
func WithClientOptions(opts ...option.ClientOption) GoogleOption {
	return func(verifier *GoogleVerifier) { verifier.clientOptions = append(verifier.clientOptions, opts...) }
}

// NewGoogleVerifier builds a verifier bound to the application's OAuth client id.
func NewGoogleVerifier(clientID string, opts ...GoogleOption) *GoogleVerifier {
	verifier := &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
	for _, opt := range opts {
		opt(verifier)
	}
	return verifier
}

/*
Verify dispatches on kind.

Parameters:
  - context: context.Context
  - token: string
  - kind: string (TokenKindID or TokenKindAccess)

Returns:
  - *ExternalProfile: Verified Google identity
  - error: Unauthorized for rejected tokens, Validation for unknown kinds
*/
func (verifier *GoogleVerifier) Verify(context context.Context, token, kind string) (*ExternalProfile, error) {
	switch kind {
	case TokenKindID:
		return verifier.verifyIDToken(context, token)
	case TokenKindAccess:
		return verifier.verifyAccessToken(context, token)
	default:
		return nil, apperr.ValidationError(MsgInvalidTokenType)
	}
}

// verifyIDToken checks the signature against Google's public keys and the
// audience against our client id.
func (verifier *GoogleVerifier) verifyIDToken(context context.Context, token string) (*ExternalProfile, error) {
	payload, err := verifier.validate(context, token, verifier.clientID)
	if err != nil {
		return nil, apperr.Unauthorized(MsgInvalidGoogleID).WithCause(err)
	}

	return &ExternalProfile{
		ExternalID: payload.Subject,
		Email:      claimString(payload.Claims, "email"),
		Name:       claimString(payload.Claims, "name"),
		Avatar:     claimString(payload.Claims, "picture"),
	}, nil
}

// verifyAccessToken calls the userinfo endpoint with the presented token.
func (verifier *GoogleVerifier) verifyAccessToken(context context.Context, token string) (*ExternalProfile, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(source)}, verifier.clientOptions...)

	service, err := googleoauth.NewService(context, opts...)
	if err != nil {
		return nil, fmt.Errorf("google_userinfo_client_failed: %w", err)
	}

	info, err := service.Userinfo.Get().Context(context).Do()
	if err != nil {
		return nil, apperr.Unauthorized(MsgInvalidGoogleAccess).WithCause(err)
	}

	return &ExternalProfile{
		ExternalID: info.Id,
		Email:      info.Email,
		Name:       info.Name,
		Avatar:     info.Picture,
	}, nil
}

func claimString(claims map[string]any, key string) string {
	value, _ := claims[key].(string)
	return value
}
