// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/mailer"
	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/realtime"
)

// # Contracts & Types

// PasswordHasher hashes and checks local credentials.
// [sec.PasswordHasher] is the production implementation.
type PasswordHasher interface {
	HashPassword(plainTextPassword string) (string, error)
	CheckPasswordHash(plainTextPassword, existingHash string) bool
}

// ServiceConfig holds the knobs of the identity flows.
type ServiceConfig struct {
	// ClientURL is the frontend origin used in emailed links.
	ClientURL string

	// RevealUnknownEmail makes forgot-password answer 404 for unknown
	// addresses. When false the request succeeds silently.
	RevealUnknownEmail bool

	// Clock stamps one-time token issue and expiry checks. Defaults to the
	// UTC wall clock.
	Clock func() time.Time
}

// AuthResult is returned by every flow that signs an account in.
type AuthResult struct {
	User         *PublicAccount `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Service implements the identity use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// login or the one-time token flows must be reviewed by the security team.
type Service struct {
	store    AccountStore
	sessions *SessionManager
	hasher   PasswordHasher
	google   ExternalVerifier
	mailer   mailer.Sender
	notifier realtime.Notifier
	metrics  *metrics.Metrics
	config   ServiceConfig
	now      func() time.Time
}

// NewService constructs a new [Service]. google may be nil when Google sign-in
// is not configured; notifier and recorder may be nil.
func NewService(
	store AccountStore,
	sessions *SessionManager,
	hasher PasswordHasher,
	google ExternalVerifier,
	sender mailer.Sender,
	notifier realtime.Notifier,
	recorder *metrics.Metrics,
	config ServiceConfig,
) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	now := config.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		google:   google,
		mailer:   sender,
		notifier: notifier,
		metrics:  recorder,
		config:   config,
		now:      now,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email            string
	Password         string
	Name             string
	NationalIDNumber string
	Role             sec.Role
	Phone            string
}

/*
Register validates uniqueness, hashes the password and opens the first session.

Description: A verification token (24h) is stored as a digest and emailed
best-effort; a failed send is logged and does not fail registration.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *AuthResult: Public account and token pair
  - error: Conflict (email or national ID taken), Validation or internal failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*AuthResult, error) {
	email := NormalizeEmail(input.Email)

	role := input.Role
	if role == "" {
		role = sec.RoleNormal
	}
	if !role.In(sec.SelfAssignableRoles()...) {
		return nil, apperr.ValidationError("role must be one of: normal, company, team_leader")
	}
	if len(input.Password) > sec.MaxPasswordBytes {
		return nil, apperr.ValidationError(MsgPasswordTooLong)
	}

	// Pre-checks give precise messages; the unique indexes still guard races
	if err := service.ensureFree(context, email, input.NationalIDNumber); err != nil {
		return nil, err
	}

	hashedPassword, err := service.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	verifyToken, verifyDigest, err := newOneTimeToken()
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:            email,
		PasswordHash:     hashedPassword,
		Name:             input.Name,
		NationalIDNumber: input.NationalIDNumber,
		Phone:            input.Phone,
		Role:             role,
		Provider:         ProviderLocal,
		VerifyToken:      &OneTimeToken{Digest: verifyDigest, ExpiresAt: service.now().Add(VerificationTokenTTL)},
	}

	if err := service.store.Create(context, account); err != nil {
		return nil, translateStoreWrite("auth_service_register_failed", err)
	}

	pair, err := service.sessions.Open(context, account)
	if err != nil {
		return nil, fmt.Errorf("auth_service_register_session_failed: %w", err)
	}

	service.sendBestEffort(context, account.Email, func() (mailer.Message, error) {
		return mailer.VerificationEmail(account.Email, service.config.ClientURL, verifyToken, "24 hours")
	})

	service.metrics.AuthEvent(metricRegister, metrics.OutcomeSuccess)
	ctxutil.GetLogger(context).Info().Str("account_id", account.ID).Str("role", role.String()).Msg("account_registered")

	return newAuthResult(account, pair), nil
}

func (service *Service) ensureFree(context context.Context, email, nationalID string) error {
	_, err := service.store.FindByEmail(context, email)
	switch {
	case err == nil:
		return apperr.Conflict(MsgEmailTaken)
	case !errors.Is(err, ErrAccountNotFound):
		return fmt.Errorf("auth_service_email_check_failed: %w", err)
	}

	_, err = service.store.FindByNationalID(context, nationalID)
	switch {
	case err == nil:
		return apperr.Conflict(MsgNationalIDTaken)
	case !errors.Is(err, ErrAccountNotFound):
		return fmt.Errorf("auth_service_national_id_check_failed: %w", err)
	}

	return nil
}

// # Authentication Flow

/*
Login validates local credentials and opens a session.

Description: Missing accounts, Google-only accounts and wrong passwords share
one message. The blocked check runs after the password so only the owner
learns the account is blocked.

Returns:
  - *AuthResult: Public account and token pair
  - error: Unauthorized, Forbidden (blocked) or internal failures
*/
func (service *Service) Login(context context.Context, email, password string) (*AuthResult, error) {
	account, err := service.store.FindByEmail(context, NormalizeEmail(email))
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if account == nil || !account.HasPassword() || !service.hasher.CheckPasswordHash(password, account.PasswordHash) {
		service.metrics.AuthEvent(metricLogin, metrics.OutcomeFailure)
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	if account.IsBlocked() {
		service.metrics.AuthEvent(metricLogin, metrics.OutcomeFailure)
		return nil, apperr.Forbidden(MsgAccountBlocked)
	}

	pair, err := service.sessions.Open(context, account)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_session_failed: %w", err)
	}

	service.metrics.AuthEvent(metricLogin, metrics.OutcomeSuccess)
	return newAuthResult(account, pair), nil
}

/*
GoogleSignIn signs in with a Google ID token or access token.

Description:
 1. Verify the token and require an email.
 2. Look the account up by Google subject or email.
 3. Reject blocked accounts before any write.
 4. Link unlinked accounts: set external id and provider, backfill the avatar
    only when empty. Passwords are never touched.
 5. Otherwise create a verified account with role normal.

Parameters:
  - context: context.Context
  - token: string
  - kind: string (TokenKindID by default, or TokenKindAccess)

Returns:
  - *AuthResult: Public account and token pair
  - error: Validation, Unauthorized, Forbidden or internal failures
*/
func (service *Service) GoogleSignIn(context context.Context, token, kind string) (*AuthResult, error) {
	if kind == "" {
		kind = TokenKindID
	}
	if kind != TokenKindID && kind != TokenKindAccess {
		return nil, apperr.ValidationError(MsgInvalidTokenType)
	}
	if service.google == nil {
		return nil, apperr.ServiceUnavailable("Google sign-in is not configured")
	}

	profile, err := service.google.Verify(context, token, kind)
	if err != nil {
		service.metrics.AuthEvent(metricGoogle, metrics.OutcomeFailure)
		return nil, err
	}
	if profile.Email == "" {
		return nil, apperr.ValidationError(MsgGoogleNoEmail)
	}
	email := NormalizeEmail(profile.Email)

	account, err := service.store.FindByEmailOrExternalID(context, email, profile.ExternalID)
	switch {
	case err == nil:
		if account.IsBlocked() {
			service.metrics.AuthEvent(metricGoogle, metrics.OutcomeFailure)
			return nil, apperr.Forbidden(MsgAccountBlocked)
		}
		if account.ExternalID == "" {
			if err := service.link(context, account, profile); err != nil {
				return nil, err
			}
		}

	case errors.Is(err, ErrAccountNotFound):
		account, err = service.createExternal(context, email, profile)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("auth_service_google_lookup_failed: %w", err)
	}

	pair, err := service.sessions.Open(context, account)
	if err != nil {
		return nil, fmt.Errorf("auth_service_google_session_failed: %w", err)
	}

	service.metrics.AuthEvent(metricGoogle, metrics.OutcomeSuccess)
	return newAuthResult(account, pair), nil
}

// link attaches a Google identity to an existing local account.
func (service *Service) link(context context.Context, account *Account, profile *ExternalProfile) error {
	account.ExternalID = profile.ExternalID
	account.Provider = ProviderGoogle
	if account.Avatar == "" {
		account.Avatar = profile.Avatar
	}

	if err := service.store.Save(context, account); err != nil {
		return translateStoreWrite("auth_service_google_link_failed", err)
	}

	ctxutil.GetLogger(context).Info().Str("account_id", account.ID).Msg("account_linked_google")
	service.notifier.Notify(context, account.ID, EventAccountLinked, map[string]string{
		"provider": string(ProviderGoogle),
	})
	return nil
}

// createExternal enrolls a first-time Google user. The email is verified by Google.
func (service *Service) createExternal(context context.Context, email string, profile *ExternalProfile) (*Account, error) {
	name := profile.Name
	if name == "" {
		name = localPart(email)
	}

	account := &Account{
		Email:         email,
		Name:          name,
		Role:          sec.RoleNormal,
		Avatar:        profile.Avatar,
		ExternalID:    profile.ExternalID,
		Provider:      ProviderGoogle,
		EmailVerified: true,
	}

	if err := service.store.Create(context, account); err != nil {
		return nil, translateStoreWrite("auth_service_google_create_failed", err)
	}

	ctxutil.GetLogger(context).Info().Str("account_id", account.ID).Msg("account_registered_google")
	return account, nil
}

// # Session Delegation

// Refresh rotates a refresh token. See [SessionManager.Refresh].
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	return service.sessions.Refresh(context, refreshToken)
}

// Logout revokes a single refresh token. It never fails for unknown tokens.
func (service *Service) Logout(context context.Context, accountID, refreshToken string) error {
	return service.sessions.Close(context, accountID, refreshToken)
}

// LogoutAll revokes every session of the account.
func (service *Service) LogoutAll(context context.Context, accountID string) error {
	return service.sessions.CloseAll(context, accountID)
}

// # Password Recovery

/*
ForgotPassword stores a reset digest (1h) and emails the plaintext link.

Description: Unknown addresses answer NotFound when RevealUnknownEmail is set,
otherwise they succeed without side effects. If the email cannot be sent the
stored token is cleared again and the request fails.

Returns:
  - error: NotFound, Internal (send failure) or storage failures
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {
	account, err := service.store.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			if service.config.RevealUnknownEmail {
				return apperr.NotFound(MsgUnknownEmail)
			}
			return nil
		}
		return fmt.Errorf("auth_service_forgot_lookup_failed: %w", err)
	}

	resetToken, resetDigest, err := newOneTimeToken()
	if err != nil {
		return err
	}

	pending := &OneTimeToken{Digest: resetDigest, ExpiresAt: service.now().Add(ResetTokenTTL)}
	if err := service.store.SetOneTimeToken(context, account.ID, PurposeResetPassword, pending); err != nil {
		return fmt.Errorf("auth_service_forgot_save_failed: %w", err)
	}

	message, err := mailer.PasswordResetEmail(account.Email, service.config.ClientURL, resetToken, "1 hour")
	if err == nil {
		err = service.mailer.Send(context, message)
	}
	if err != nil {
		if clearErr := service.store.SetOneTimeToken(context, account.ID, PurposeResetPassword, nil); clearErr != nil {
			ctxutil.GetLogger(context).Error().Err(clearErr).Str("account_id", account.ID).Msg("reset_token_clear_failed")
		}

		failure := apperr.Internal(fmt.Errorf("auth_service_reset_email_failed: %w", err))
		failure.Message = MsgEmailSendFailed
		return failure
	}

	return nil
}

/*
ResetPassword consumes a reset token and sets a new password.

Description: The token is single-use. Every session is revoked afterwards.

Parameters:
  - context: context.Context
  - token: string (Plaintext from the emailed link)
  - newPassword: string

Returns:
  - error: Validation (password too long), InvalidOrExpired or internal failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	// Checked before consuming so the link stays usable.
	if len(newPassword) > sec.MaxPasswordBytes {
		return apperr.ValidationError(MsgPasswordTooLong)
	}

	account, err := service.store.ConsumeOneTimeToken(context, PurposeResetPassword, sec.HashToken(token), service.now())
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			service.metrics.AuthEvent(metricResetPassword, metrics.OutcomeFailure)
			return apperr.InvalidOrExpired("reset token")
		}
		return fmt.Errorf("auth_service_reset_consume_failed: %w", err)
	}

	hashedPassword, err := service.hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	account.PasswordHash = hashedPassword
	if err := service.store.Save(context, account); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	if err := service.sessions.CloseAll(context, account.ID); err != nil {
		return fmt.Errorf("auth_service_reset_revoke_failed: %w", err)
	}

	service.metrics.AuthEvent(metricResetPassword, metrics.OutcomeSuccess)
	return nil
}

/*
VerifyEmail consumes a verification token and marks the email verified.
Sessions are left untouched.
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {
	account, err := service.store.ConsumeOneTimeToken(context, PurposeVerifyEmail, sec.HashToken(token), service.now())
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			service.metrics.AuthEvent(metricVerifyEmail, metrics.OutcomeFailure)
			return apperr.InvalidOrExpired("verification token")
		}
		return fmt.Errorf("auth_service_verify_consume_failed: %w", err)
	}

	account.EmailVerified = true
	if err := service.store.Save(context, account); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	service.metrics.AuthEvent(metricVerifyEmail, metrics.OutcomeSuccess)
	service.notifier.Notify(context, account.ID, EventEmailVerified, nil)
	return nil
}

// # Profile & Guard Support

// Me returns the public view of the authenticated account.
func (service *Service) Me(subject sec.Subject) (*PublicAccount, error) {
	account, ok := subject.(*Account)
	if !ok {
		return nil, apperr.Internal(fmt.Errorf("auth_service_me_unexpected_subject: %T", subject))
	}
	return account.Public(), nil
}

/*
LoadSubject resolves the account behind a verified access token for the
access guard.

Returns:
  - sec.Subject: The account, or nil when it no longer exists
  - error: Storage failures only
*/
func (service *Service) LoadSubject(context context.Context, accountID string) (sec.Subject, error) {
	account, err := service.store.FindByID(context, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

/*
EnsureAdmin seeds the platform operator account at startup.

Description: Does nothing when email is empty or an account with that email
already exists. An existing non-admin account is left as is and reported.
*/
func (service *Service) EnsureAdmin(context context.Context, email, password, name string) error {
	if email == "" {
		return nil
	}
	email = NormalizeEmail(email)
	logger := ctxutil.GetLogger(context)

	existing, err := service.store.FindByEmail(context, email)
	if err == nil {
		if existing.Role != sec.RoleAdmin {
			logger.Warn().Str("account_id", existing.ID).Msg("admin_seed_email_taken_by_non_admin")
		}
		return nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("auth_service_admin_lookup_failed: %w", err)
	}

	hashedPassword, err := service.hasher.HashPassword(password)
	if err != nil {
		return fmt.Errorf("auth_service_admin_hash_failed: %w", err)
	}

	if name == "" {
		name = localPart(email)
	}

	admin := &Account{
		Email:         email,
		PasswordHash:  hashedPassword,
		Name:          name,
		Role:          sec.RoleAdmin,
		Provider:      ProviderLocal,
		EmailVerified: true,
	}
	if err := service.store.Create(context, admin); err != nil {
		return fmt.Errorf("auth_service_admin_create_failed: %w", err)
	}

	logger.Info().Str("account_id", admin.ID).Msg("admin_account_seeded")
	return nil
}

// # Helpers

func (service *Service) sendBestEffort(context context.Context, to string, build func() (mailer.Message, error)) {
	message, err := build()
	if err == nil {
		err = service.mailer.Send(context, message)
	}
	if err != nil {
		ctxutil.GetLogger(context).Warn().Err(err).Str("to", to).Msg("verification_email_send_failed")
	}
}

func newOneTimeToken() (plaintext, digest string, err error) {
	plaintext, err = sec.GenerateSecureToken(sec.OneTimeTokenLength)
	if err != nil {
		return "", "", fmt.Errorf("auth_service_generate_token_failed: %w", err)
	}
	return plaintext, sec.HashToken(plaintext), nil
}

func newAuthResult(account *Account, pair *TokenPair) *AuthResult {
	return &AuthResult{
		User:         account.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

// translateStoreWrite maps uniqueness violations to Conflict and wraps the rest.
func translateStoreWrite(op string, err error) error {
	if field, ok := IsDuplicateKey(err); ok {
		switch field {
		case FieldNationalIDNumber:
			return apperr.Conflict(MsgNationalIDTaken)
		case FieldExternalID:
			return apperr.Conflict("Google account already linked to another user")
		default:
			return apperr.Conflict(MsgEmailTaken)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
