package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/engine"
	"github.com/inamate/psdedit/internal/store"
)

const saveTimeout = 10 * time.Second

// Hub routes clients to per-document rooms. Rooms are loaded from the
// store on first join and written back when the last client leaves or
// the hub stops.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	store      store.Store
	sampling   composite.Sampling
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(st store.Store, sampling composite.Sampling) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		store:      st,
		sampling:   sampling,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			return
		}
	}
}

// Register hands a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Stop ends the run loop and saves every room with unsaved changes.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done

	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		room.mu.Lock()
		h.save(room)
		room.mu.Unlock()
	}
}

// save writes a dirty room to the store. Caller holds room.mu.
func (h *Hub) save(room *Room) {
	if !room.dirty {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := h.store.Save(ctx, room.doc); err != nil {
		slog.Error("save document", "document", room.documentID, "error", err)
		return
	}
	room.dirty = false
	slog.Info("document saved", "document", room.documentID, "version", room.doc.Version)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		doc, err := h.store.Load(ctx, client.DocumentID)
		cancel()
		if err != nil {
			h.mu.Unlock()
			msg := "failed to load document"
			if errors.Is(err, store.ErrNotFound) {
				msg = "document not found"
			} else {
				slog.Error("load document", "document", client.DocumentID, "error", err)
			}
			client.Send(newMessage(TypeError, ErrorPayload{Message: msg}))
			client.close()
			return
		}
		room = NewRoom(doc, h.sampling)
		h.rooms[client.DocumentID] = room
	}
	h.mu.Unlock()

	room.mu.Lock()
	room.clients[client.ClientID] = client
	editor := room.newEditor()
	room.editors[client.ClientID] = editor
	room.presence.Join(client.ClientID, client.DisplayName)
	welcome := newMessage(TypeWelcome, WelcomePayload{
		ClientID: client.ClientID,
		Document: documentPayload(room.doc),
	})
	state := stateMessage(editor)
	room.mu.Unlock()

	client.Send(welcome)
	client.Send(state)
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.ClientID = client.ClientID
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.DocumentID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		client.close()
		return
	}

	room.mu.Lock()
	if _, member := room.clients[client.ClientID]; !member {
		room.mu.Unlock()
		h.mu.Unlock()
		client.close()
		return
	}
	delete(room.clients, client.ClientID)
	delete(room.editors, client.ClientID)
	room.presence.Remove(client.ClientID)
	client.close()

	last := len(room.clients) == 0
	if last {
		delete(h.rooms, client.DocumentID)
		room.closed = true
		h.save(room)
	}
	room.mu.Unlock()
	h.mu.Unlock()

	if last {
		slog.Info("room closed", "document", client.DocumentID)
	} else {
		leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
		leaveMsg.ClientID = client.ClientID
		leaveMsg.UserID = client.UserID
		h.broadcastToRoom(client.DocumentID, leaveMsg, "")
	}

	slog.Info("client left", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.DocumentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.mu.Lock()
	editor, ok := room.editors[sender.ClientID]
	if !ok {
		room.mu.Unlock()
		return
	}
	changed, err := room.apply(editor, func(e *engine.Engine) error {
		return dispatch(e, msg)
	})
	state := stateMessage(editor)
	var updated, presence *Message
	if changed {
		updated = newMessage(TypeDocumentUpdated, documentPayload(room.doc))
	}
	if msg.Type == TypeSelect {
		if p := room.presence.Select(sender.ClientID, editor.Selection()); p != nil {
			presence = newMessage(TypePresenceUpdate, p)
			presence.ClientID = sender.ClientID
			presence.UserID = sender.UserID
		}
	}
	room.mu.Unlock()

	if err != nil {
		slog.Debug("message rejected", "type", msg.Type, "user", sender.UserID, "error", err)
		reply := newMessage(TypeError, ErrorPayload{Message: err.Error()})
		reply.Seq = msg.Seq
		sender.Send(reply)
	}
	state.Seq = msg.Seq
	sender.Send(state)
	if updated != nil {
		h.broadcastToRoom(sender.DocumentID, updated, "")
	}
	if presence != nil {
		h.broadcastToRoom(sender.DocumentID, presence, sender.ClientID)
	}
}

// Do runs fn against the live revision of a document when a room is open
// for it. A change is pushed to every editor in the room. It reports false
// when no room is open, so the caller can fall back to the store.
func (h *Hub) Do(id string, fn func(*engine.Engine) error) (bool, error) {
	h.mu.RLock()
	room, ok := h.rooms[id]
	h.mu.RUnlock()
	if !ok {
		return false, nil
	}

	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return false, nil
	}
	changed, err := room.apply(room.newEditor(), fn)
	var updated *Message
	if changed {
		updated = newMessage(TypeDocumentUpdated, documentPayload(room.doc))
	}
	room.mu.Unlock()

	if updated != nil {
		h.broadcastToRoom(id, updated, "")
	}
	return true, err
}

// Discard closes the room for a deleted document without saving it.
// Connected clients get an error and are disconnected. It reports whether
// a room was open.
func (h *Hub) Discard(id string) bool {
	h.mu.Lock()
	room, ok := h.rooms[id]
	if ok {
		delete(h.rooms, id)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}

	room.mu.Lock()
	room.closed = true
	room.dirty = false
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		clients = append(clients, c)
	}
	room.clients = make(map[string]*Client)
	room.editors = make(map[string]*engine.Engine)
	room.mu.Unlock()

	msg := newMessage(TypeError, ErrorPayload{Message: "document deleted"})
	for _, c := range clients {
		c.Send(msg)
		c.close()
	}
	slog.Info("room discarded", "document", id, "clients", len(clients))
	return true
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.mu.Lock()
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	room.mu.Unlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
