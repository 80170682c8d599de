// Package store persists document snapshots.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/inamate/psdedit/internal/document"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("store: document not found")

// Summary is a stored document without its layers.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store saves and loads whole documents. Save replaces any previous
// snapshot with the same id.
type Store interface {
	Save(ctx context.Context, doc *document.Document) error
	Load(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}
