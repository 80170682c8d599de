package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/engine"
)

// Room holds the authoritative revision of one document and an editor
// engine per connected client. Every engine shares the same immutable
// tree; a commit in one editor is pushed to the others.
type Room struct {
	mu         sync.Mutex
	documentID string
	doc        *document.Document
	sampling   composite.Sampling
	clients    map[string]*Client        // clientID -> client
	editors    map[string]*engine.Engine // clientID -> editor
	presence   *PresenceManager
	dirty      bool
	closed     bool
}

func NewRoom(doc *document.Document, sampling composite.Sampling) *Room {
	return &Room{
		documentID: doc.ID,
		doc:        doc,
		sampling:   sampling,
		clients:    make(map[string]*Client),
		editors:    make(map[string]*engine.Engine),
		presence:   NewPresenceManager(),
	}
}

// newEditor returns an engine on the current revision. Caller holds mu.
func (r *Room) newEditor() *engine.Engine {
	e := engine.NewEngine()
	e.SetSampling(r.sampling)
	e.LoadDocument(r.doc)
	return e
}

// apply runs fn on e and adopts e's document if it produced a new
// revision. Caller holds mu.
func (r *Room) apply(e *engine.Engine, fn func(*engine.Engine) error) (changed bool, err error) {
	before := r.doc.Version
	err = fn(e)
	if e.Document() != r.doc && e.Version() != before {
		r.doc = e.Document()
		r.dirty = true
		for _, other := range r.editors {
			if other != e {
				other.UpdateDocument(r.doc)
			}
		}
		changed = true
	}
	return changed, err
}

// dispatch applies one client message to its editor.
func dispatch(e *engine.Engine, msg *Message) error {
	switch msg.Type {
	case TypeSelect:
		var p SelectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return e.SetSelection(p.LayerID)

	case TypeVisibility:
		var p VisibilityPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return e.SetVisibility(p.LayerID, p.Visible)

	case TypeViewScale:
		var p ViewScalePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		e.SetViewScale(p.Scale)
		return nil

	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		switch msg.Type {
		case TypePointerDown:
			e.PointerDown(p.X, p.Y)
		case TypePointerMove:
			e.PointerMove(p.X, p.Y)
		default:
			e.PointerUp(p.X, p.Y)
		}
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func stateMessage(e *engine.Engine) *Message {
	p := StatePayload{
		Cursor:    e.Cursor(),
		Selection: e.Selection(),
		ViewScale: e.ViewScale(),
		Version:   e.Version(),
	}
	if o, ok := e.Overlay(); ok {
		p.Overlay = &o
	}
	return newMessage(TypeState, p)
}
