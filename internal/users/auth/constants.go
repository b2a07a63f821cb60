// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// VerificationTokenTTL is how long an email verification link stays valid.
	// Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = 1 * time.Hour
)

// # Notification Events

const (
	EventSessionCompromised = "session.compromised"
	EventSessionsRevoked    = "session.revoked_all"
	EventAccountBlocked     = "account.blocked"
	EventAccountLinked      = "account.linked"
	EventEmailVerified      = "account.email_verified"
)

// # Metric Event Labels

const (
	metricRegister      = "register"
	metricLogin         = "login"
	metricGoogle        = "google_sign_in"
	metricRefresh       = "refresh"
	metricResetPassword = "reset_password"
	metricVerifyEmail   = "verify_email"
)

// # Token Kinds

const (
	TokenKindID     = "idToken"
	TokenKindAccess = "accessToken"
)

// # Client Messages

const (
	MsgEmailTaken          = "Email already registered"
	MsgNationalIDTaken     = "National ID number already registered"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgAccountBlocked      = "This account has been blocked. Contact support."
	MsgInvalidRefreshToken = "Invalid or expired refresh token"
	MsgAccountGone         = "User not found"
	MsgUnknownEmail        = "No user found with that email"
	MsgCannotBlockAdmin    = "Cannot block admin users"
	MsgInvalidTokenType    = "Invalid token type"
	MsgGoogleNoEmail       = "Google account has no email"
	MsgInvalidGoogleID     = "Invalid Google ID token"
	MsgInvalidGoogleAccess = "Invalid Google access token"
	MsgEmailSendFailed     = "Error sending email. Try again later."
	MsgPasswordTooLong     = "Password must be at most 72 bytes"

	MsgRegistered     = "Registration successful. Please verify your email."
	MsgLoggedIn       = "Login successful"
	MsgGoogleSignedIn = "Google sign-in successful"
	MsgLoggedOut      = "Logged out successfully"
	MsgLoggedOutAll   = "Logged out from all devices"
	MsgResetSent      = "Password reset email sent. Check your inbox."
	MsgResetDone      = "Password reset successful. Please log in."
	MsgEmailVerified  = "Email verified successfully"
)

// # Field Identifiers

// Field names used in validation messages and duplicate-key mapping.
const (
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldName             = "name"
	FieldNationalIDNumber = "nationalIdNumber"
	FieldRole             = "role"
	FieldPhone            = "phone"
	FieldExternalID       = "externalId"
	FieldToken            = "token"
	FieldTokenType        = "tokenType"
	FieldRefreshToken     = "refreshToken"
)
