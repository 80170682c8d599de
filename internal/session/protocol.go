package session

import (
	"encoding/json"

	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/engine"
)

type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	// Client → server
	TypeSelect      = "select"
	TypeVisibility  = "visibility"
	TypeViewScale   = "view.scale"
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"

	// Server → client
	TypeWelcome         = "welcome"
	TypeState           = "state"
	TypeDocumentUpdated = "document.updated"
	TypeError           = "error"

	// Presence (both directions)
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

type SelectPayload struct {
	LayerID string `json:"layerId"`
}

type VisibilityPayload struct {
	LayerID string `json:"layerId"`
	Visible bool   `json:"visible"`
}

type ViewScalePayload struct {
	Scale float64 `json:"scale"`
}

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DocumentPayload carries a whole document revision without rasters.
type DocumentPayload struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Width   int                  `json:"width"`
	Height  int                  `json:"height"`
	Version int                  `json:"version"`
	Layers  []document.LayerNode `json:"layers"`
}

func documentPayload(d *document.Document) DocumentPayload {
	return DocumentPayload{
		ID:      d.ID,
		Name:    d.Name,
		Width:   d.Width,
		Height:  d.Height,
		Version: d.Version,
		Layers:  d.Layers,
	}
}

type WelcomePayload struct {
	ClientID string          `json:"clientId"`
	Document DocumentPayload `json:"document"`
}

// StatePayload is the sender's editing state after each message.
type StatePayload struct {
	Cursor    engine.Cursor   `json:"cursor"`
	Selection string          `json:"selection,omitempty"`
	Overlay   *engine.Overlay `json:"overlay,omitempty"`
	ViewScale float64         `json:"viewScale"`
	Version   int             `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	Selection   string `json:"selection,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
