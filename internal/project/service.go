package project

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/inamate/psdedit/internal/bundle"
	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/engine"
	"github.com/inamate/psdedit/internal/store"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrLayerNotFound = errors.New("layer not found")
	ErrInvalid       = errors.New("invalid document")
)

// Live gives access to documents that are open in an editing session.
// Do runs fn against the session's engine and reports false when no
// session holds id. Discard drops an open session without saving it.
type Live interface {
	Do(id string, fn func(*engine.Engine) error) (bool, error)
	Discard(id string) bool
}

type Service struct {
	store    store.Store
	live     Live
	sampling composite.Sampling
}

func NewService(st store.Store, live Live, sampling composite.Sampling) *Service {
	return &Service{store: st, live: live, sampling: sampling}
}

// Document is the metadata and layer tree returned by Get.
type Document struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Width   int                  `json:"width"`
	Height  int                  `json:"height"`
	Version int                  `json:"version"`
	Layers  []document.LayerNode `json:"layers"`
}

func toDocument(d *document.Document) *Document {
	return &Document{
		ID:      d.ID,
		Name:    d.Name,
		Width:   d.Width,
		Height:  d.Height,
		Version: d.Version,
		Layers:  d.Layers,
	}
}

// Import stores a new document built from a bundle manifest.
func (s *Service) Import(ctx context.Context, data []byte) (*Document, error) {
	doc, err := bundle.Import(data)
	if err != nil {
		// Manifest and raster decode failures are both client errors.
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return toDocument(doc), nil
}

func (s *Service) List(ctx context.Context) ([]store.Summary, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	var out *Document
	err := s.withEngine(ctx, id, func(e *engine.Engine) error {
		out = toDocument(e.Document())
		return nil
	})
	return out, err
}

// Delete removes a document. An open session is closed first so its
// unsaved revision cannot be written back.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.live != nil {
		s.live.Discard(id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Composite renders a document. It implements export.Source.
func (s *Service) Composite(ctx context.Context, id string) (image.Image, string, error) {
	var (
		img  *image.RGBA
		name string
	)
	err := s.withEngine(ctx, id, func(e *engine.Engine) error {
		src := e.Render()
		img = image.NewRGBA(src.Rect)
		copy(img.Pix, src.Pix)
		name = e.Document().Name
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return img, name, nil
}

// ReplaceContent swaps a layer's raster.
func (s *Service) ReplaceContent(ctx context.Context, id, layerID string, img image.Image) (*Document, error) {
	return s.mutate(ctx, id, func(e *engine.Engine) error {
		return e.ReplaceContent(layerID, img)
	})
}

// SetVisibility shows or hides a layer.
func (s *Service) SetVisibility(ctx context.Context, id, layerID string, visible bool) (*Document, error) {
	return s.mutate(ctx, id, func(e *engine.Engine) error {
		return e.SetVisibility(layerID, visible)
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*engine.Engine) error) (*Document, error) {
	var out *Document
	err := s.withEngine(ctx, id, func(e *engine.Engine) error {
		if err := fn(e); err != nil {
			if errors.Is(err, engine.ErrLayerNotFound) {
				return ErrLayerNotFound
			}
			return err
		}
		out = toDocument(e.Document())
		return nil
	})
	return out, err
}

// withEngine runs fn against the live session for id when there is one,
// otherwise against a fresh engine loaded from the store. Changes made on
// a fresh engine are saved back.
func (s *Service) withEngine(ctx context.Context, id string, fn func(*engine.Engine) error) error {
	if s.live != nil {
		if ok, err := s.live.Do(id, fn); ok {
			return err
		}
	}

	doc, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load document: %w", err)
	}

	e := engine.NewEngine()
	e.SetSampling(s.sampling)
	e.LoadDocument(doc)
	if err := fn(e); err != nil {
		return err
	}
	if e.Version() != doc.Version {
		if err := s.store.Save(ctx, e.Document()); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}
	return nil
}
