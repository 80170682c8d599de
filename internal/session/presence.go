package session

import (
	"log/slog"
	"sync"
)

// PresenceManager tracks which layer each connected client has selected.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Join(clientID, displayName string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = &PresencePayload{DisplayName: displayName}
}

// Select records a client's selection and returns its presence, or nil
// for an unknown client.
func (pm *PresenceManager) Select(clientID, layerID string) *PresencePayload {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.presences[clientID]
	if !ok {
		return nil
	}
	next := *p
	next.Selection = layerID
	pm.presences[clientID] = &next
	return &next
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	msg := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if len(msg.Payload) == 0 {
		slog.Error("marshal presence state")
		return nil
	}
	return msg
}
