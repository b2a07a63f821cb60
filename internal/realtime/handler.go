// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/constants"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/respond"
)

// OriginPolicy decides which browser origins may open a socket.
type OriginPolicy interface {
	IsDevelopment() bool
	AllowedOrigins() []string
}

// Handler upgrades requests that already passed the access guard.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the /ws endpoint for hub.
func NewHandler(hub *Hub, policy OriginPolicy) *Handler {
	allowed := policy.AllowedOrigins()

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(request *http.Request) bool {
				origin := request.Header.Get(constants.HeaderOrigin)
				if origin == "" || policy.IsDevelopment() {
					return true
				}
				return slices.Contains(allowed, strings.TrimRight(origin, "/"))
			},
		},
	}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	subject := ctxutil.GetSubject(request.Context())
	if subject == nil {
		respond.Error(writer, request, apperr.Unauthorized("Not authorized. No token provided."))
		return
	}

	// The upgrader writes its own error response.
	conn, err := h.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		ctxutil.GetLogger(request.Context()).Warn().Err(err).Msg("realtime_upgrade_failed")
		return
	}

	c := newClient(h.hub, conn, subject.SubjectID())
	if !h.hub.attach(c) {
		_ = conn.Close()
		return
	}

	ctxutil.GetLogger(request.Context()).Info().Msg("realtime_client_connected")

	go c.writePump()
	go c.readPump()
}
