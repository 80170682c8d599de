package session

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/psdedit/internal/auth"
)

// Handler upgrades /ws/documents/{id} requests into session clients.
type Handler struct {
	hub            *Hub
	auth           *auth.Service
	originPatterns []string
}

func NewHandler(hub *Hub, authSvc *auth.Service, originPatterns []string) *Handler {
	return &Handler{hub: hub, auth: authSvc, originPatterns: originPatterns}
}

// ServeHTTP authenticates via the token query parameter. When no access
// password is configured a missing token joins as an anonymous user.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]
	if documentID == "" {
		http.Error(w, "missing document id", http.StatusBadRequest)
		return
	}

	var user auth.User
	token := r.URL.Query().Get("token")
	switch {
	case token != "":
		u, err := h.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user = u
	case h.auth.Open():
		user = auth.Anonymous()
	default:
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, user.ID, user.DisplayName, documentID, clientID)

	if !h.hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
