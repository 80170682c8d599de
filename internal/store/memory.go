package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inamate/psdedit/internal/bundle"
	"github.com/inamate/psdedit/internal/document"
)

type memoryEntry struct {
	summary Summary
	data    []byte
}

// Memory keeps encoded snapshots in process memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]memoryEntry
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Save(_ context.Context, doc *document.Document) error {
	data, err := bundle.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = memoryEntry{summary: summarize(doc, m.now()), data: data}
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	e, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	doc, err := bundle.Restore(e.data)
	if err != nil {
		return nil, fmt.Errorf("restore document: %w", err)
	}
	return doc, nil
}

// List returns summaries, most recently updated first.
func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.docs))
	for _, e := range m.docs {
		out = append(out, e.summary)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func summarize(doc *document.Document, at time.Time) Summary {
	return Summary{
		ID:        doc.ID,
		Name:      doc.Name,
		Width:     doc.Width,
		Height:    doc.Height,
		Version:   doc.Version,
		UpdatedAt: at,
	}
}
