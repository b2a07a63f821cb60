// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/constants"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/respond"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// Client-facing guard messages.
const (
	MsgNoToken       = "Not authorized. No token provided."
	MsgInvalidToken  = "Invalid or expired token"
	MsgSubjectGone   = "User belonging to this token no longer exists."
	MsgBlocked       = "This account has been blocked. Contact support."
	msgRoleForbidden = "Role '%s' is not authorized to access this route."
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// Defining it here decouples the middleware from the token codec, allowing
// stubs during unit testing.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*sec.AuthClaims, error)
}

// SubjectLoader resolves the account named by a verified token.
//
// LoadSubject returns a nil Subject and a nil error when the account no longer exists.
type SubjectLoader interface {
	LoadSubject(context context.Context, accountID string) (sec.Subject, error)
}

// GuardOption customises [Protect].
type GuardOption func(*guardOptions)

type guardOptions struct {
	queryToken bool
}

// WithQueryToken also accepts the access token from the `token` query
// parameter. Browsers cannot set headers on websocket handshakes.
func WithQueryToken() GuardOption {
	return func(opts *guardOptions) { opts.queryToken = true }
}

// Protect requires a valid access token that belongs to a live, unblocked account.
//
// # Flow
//  1. Read 'Authorization: Bearer <token>' (scheme is case-insensitive).
//  2. Verify the token via [TokenVerifier].
//  3. Load the account via [SubjectLoader]; reject if gone or blocked.
//  4. Inject [*sec.AuthClaims] and [sec.Subject] into the request context.
func Protect(verifier TokenVerifier, loader SubjectLoader, options ...GuardOption) func(http.Handler) http.Handler {
	var opts guardOptions
	for _, option := range options {
		option(&opts)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			token, err := extractToken(request, opts)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized(MsgInvalidToken))
				return
			}

			// ── 3. Subject Resolution ─────────────────────────────────────────
			subject, err := loader.LoadSubject(request.Context(), claims.AccountID)
			if err != nil {
				respond.Error(writer, request, apperr.Internal(fmt.Errorf("middleware_load_subject_failed: %w", err)))
				return
			}
			if subject == nil {
				respond.Error(writer, request, apperr.Unauthorized(MsgSubjectGone))
				return
			}
			if subject.IsBlocked() {
				respond.Error(writer, request, apperr.Forbidden(MsgBlocked))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthClaims(request.Context(), claims)
			ctx = ctxutil.WithSubject(ctx, subject)
			ctxutil.AnnotateLogger(ctx, "account_id", subject.SubjectID())

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// Authorize blocks requests whose account role is not in roles.
//
// Must be registered in the router AFTER [Protect]. The role is read from the
// loaded account, not the token, so role changes apply immediately.
func Authorize(roles ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			subject := ctxutil.GetSubject(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if subject == nil {
				respond.Error(writer, request, apperr.Unauthorized(MsgNoToken))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !subject.SubjectRole().In(roles...) {
				respond.Error(writer, request, apperr.Forbidden(fmt.Sprintf(msgRoleForbidden, subject.SubjectRole())))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// extractToken reads the bearer credential, falling back to the query string
// when enabled.
func extractToken(request *http.Request, opts guardOptions) (string, error) {
	header := strings.TrimSpace(request.Header.Get(constants.HeaderAuthorization))

	if header == "" {
		if opts.queryToken {
			if token := request.URL.Query().Get(constants.TokenQueryParam); token != "" {
				return token, nil
			}
		}
		return "", apperr.Unauthorized(MsgNoToken)
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) || token == "" {
		return "", apperr.Unauthorized(MsgNoToken)
	}

	return token, nil
}
