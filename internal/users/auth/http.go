// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	requestutil "github.com/taibuivan/shiftsphere/internal/platform/request"
	"github.com/taibuivan/shiftsphere/internal/platform/respond"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// # Definitions & Constructors

// Handler implements the /auth endpoints.
//
// # Scope
//
// Account entry points (registration, local and Google sign-in), session
// rotation and revocation, password recovery and email verification.
type Handler struct {
	authService *Service
	protect     func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler]. protect is the access guard applied
// to the authenticated routes, normally [middleware.Protect].
func NewHandler(service *Service, protect func(http.Handler) http.Handler) *Handler {
	return &Handler{authService: service, protect: protect}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register, /login, /google, /refresh-token
//   - POST /forgot-password, /reset-password/{token}
//   - GET  /verify-email/{token}
//   - POST /logout, /logout-all and GET /me (protected)
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/google", handler.google)
	router.Post("/refresh-token", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password/{token}", handler.resetPassword)
	router.Get("/verify-email/{token}", handler.verifyEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.protect)
		r.Post("/logout", handler.logout)
		r.Post("/logout-all", handler.logoutAll)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email            string   `json:"email" validate:"required,email"`
	Password         string   `json:"password" validate:"required,min=8,max_bytes=72"`
	Name             string   `json:"name" validate:"required,min=2,max=100"`
	NationalIDNumber string   `json:"nationalIdNumber" validate:"required,min=5,max=50"`
	Role             sec.Role `json:"role" validate:"omitempty,assignable_role"`
	Phone            string   `json:"phone" validate:"omitempty,max=20"`
}

func (registerRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"email.required":            "Email is required",
		"email.email":               "Please provide a valid email",
		"password.required":         "Password is required",
		"password.min":              "Password must be at least 8 characters",
		"password.max_bytes":        "Password must be at most 72 bytes",
		"name.required":             "Name is required",
		"nationalIdNumber.required": "National ID number is required",
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleRequest struct {
	Token     string `json:"token" validate:"required"`
	TokenType string `json:"tokenType"`
}

func (googleRequest) ValidationMessages() map[string]string {
	return map[string]string{"token.required": "token is required"}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max_bytes=72"`
}

func (resetPasswordRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"password.required":  "Password is required",
		"password.min":       "Password must be at least 8 characters",
		"password.max_bytes": "Password must be at most 72 bytes",
	}
}

/*
Register handles the creation of a new local account.

POST /auth/register

Description: Validates input, rejects duplicate email or national ID and
signs the new account in. A verification link is emailed best-effort.

Request:
  - Body: registerRequest (email, password, name, nationalIdNumber, role?, phone?)

Response:
  - 201: AuthResult: {user, accessToken, refreshToken}
  - 400: VALIDATION_ERROR
  - 409: CONFLICT: Email or national ID already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:            input.Email,
		Password:         input.Password,
		Name:             input.Name,
		NationalIDNumber: input.NationalIDNumber,
		Role:             input.Role,
		Phone:            input.Phone,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, MsgRegistered, result)
}

/*
Login authenticates with email and password.

POST /auth/login

Response:
  - 200: AuthResult
  - 401: UNAUTHORIZED: Invalid email or password
  - 403: FORBIDDEN: Account blocked
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgLoggedIn, result)
}

/*
Google signs in with a Google ID token (default) or OAuth access token.

POST /auth/google

Request:
  - Body: googleRequest (token, tokenType: "idToken" | "accessToken")

Response:
  - 200: AuthResult
  - 400: VALIDATION_ERROR: Missing token, unknown token type or no email
  - 401: UNAUTHORIZED: Token rejected by Google
  - 403: FORBIDDEN: Account blocked
*/
func (handler *Handler) google(writer http.ResponseWriter, request *http.Request) {
	var input googleRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.GoogleSignIn(request.Context(), input.Token, input.TokenType)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgGoogleSignedIn, result)
}

/*
Refresh rotates a refresh token into a new pair.

POST /auth/refresh-token

Description: Presenting a token that was already rotated revokes every
session of the account.

Response:
  - 200: TokenPair: {accessToken, refreshToken}
  - 401: UNAUTHORIZED or SESSION_COMPROMISED
  - 403: FORBIDDEN: Account blocked
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Logout revokes the presented refresh token of the caller.

POST /auth/logout

Description: Unknown or missing tokens still succeed.
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input logoutRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), subject.SubjectID(), input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgLoggedOut, nil)
}

/*
LogoutAll revokes every session of the caller.

POST /auth/logout-all
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.LogoutAll(request.Context(), subject.SubjectID()); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgLoggedOutAll, nil)
}

/*
ForgotPassword emails a single-use reset link.

POST /auth/forgot-password

Response:
  - 200: Success
  - 404: NOT_FOUND: Unknown email (when revealing is enabled)
  - 500: INTERNAL_ERROR: Email could not be sent
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgResetSent, nil)
}

/*
ResetPassword sets a new password with an emailed token and revokes every session.

POST /auth/reset-password/{token}

Response:
  - 200: Success
  - 400: VALIDATION_ERROR or INVALID_OR_EXPIRED
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := requestutil.Param(request, FieldToken)
	if err := handler.authService.ResetPassword(request.Context(), token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgResetDone, nil)
}

/*
VerifyEmail confirms email ownership with an emailed token.

GET /auth/verify-email/{token}
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, FieldToken)
	if token == "" {
		respond.Error(writer, request, apperr.InvalidOrExpired("verification token"))
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgEmailVerified, nil)
}

/*
Me returns the authenticated account.

GET /auth/me

Response:
  - 200: {user}
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Me(subject)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"user": user})
}
