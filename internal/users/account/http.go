// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/shiftsphere/internal/platform/middleware"
	requestutil "github.com/taibuivan/shiftsphere/internal/platform/request"
	"github.com/taibuivan/shiftsphere/internal/platform/respond"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// Handler implements the HTTP layer for /users.
type Handler struct {
	accountService *Service
	protect        func(http.Handler) http.Handler
}

// NewHandler constructs a new account [Handler]. protect is the access guard.
func NewHandler(service *Service, protect func(http.Handler) http.Handler) *Handler {
	return &Handler{accountService: service, protect: protect}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// # Endpoints
//   - PATCH /profile           : any authenticated account
//   - GET   /stats/roles       : admin
//   - GET   /{id}              : admin
//   - PATCH /{id}/block        : admin
//   - PATCH /{id}/unblock      : admin
//   - PATCH /{id}/role         : admin
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.protect)

	// Self service
	router.Patch("/profile", handler.updateProfile)

	// Administration
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.Authorize(sec.RoleAdmin))
		admin.Get("/stats/roles", handler.roleStats)
		admin.Get("/{id}", handler.getAccount)
		admin.Patch("/{id}/block", handler.block)
		admin.Patch("/{id}/unblock", handler.unblock)
		admin.Patch("/{id}/role", handler.changeRole)
	})

	return router
}

// # Request Payloads

type updateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone  *string `json:"phone" validate:"omitempty,max=20"`
	Avatar *string `json:"avatarPath"`
}

type changeRoleRequest struct {
	Role sec.Role `json:"role" validate:"required,role"`
}

/*
PATCH /users/profile.

Description: Applies partial updates to the caller's profile.

Request:
  - Body: updateProfileRequest (name?, phone?, avatarPath?)

Response:
  - 200: PublicAccount
  - 400: VALIDATION_ERROR: Nothing to update or invalid values
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), subject.SubjectID(), ProfileInput{
		Name:   input.Name,
		Phone:  input.Phone,
		Avatar: input.Avatar,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgProfileUpdated, user)
}

/*
GET /users/{id}.

Response:
  - 200: PublicAccount
  - 404: NOT_FOUND
*/
func (handler *Handler) getAccount(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.accountService.GetAccount(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
PATCH /users/{id}/block.

Description: Blocks the account and clears its sessions in one write.

Response:
  - 200: PublicAccount
  - 400: VALIDATION_ERROR: Target is an admin
  - 404: NOT_FOUND
*/
func (handler *Handler) block(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.accountService.Block(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgBlocked, user)
}

// PATCH /users/{id}/unblock.
func (handler *Handler) unblock(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.accountService.Unblock(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgUnblocked, user)
}

/*
PATCH /users/{id}/role.

Request:
  - Body: changeRoleRequest (role: normal | company | team_leader | admin)

Response:
  - 200: PublicAccount
  - 400: VALIDATION_ERROR
  - 404: NOT_FOUND
*/
func (handler *Handler) changeRole(writer http.ResponseWriter, request *http.Request) {
	var input changeRoleRequest
	if err := requestutil.DecodeValid(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.ChangeRole(request.Context(), requestutil.Param(request, "id"), input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, MsgRoleChanged, user)
}

// GET /users/stats/roles.
func (handler *Handler) roleStats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.accountService.RoleStats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stats)
}
