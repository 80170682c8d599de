package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/geom"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	doc := document.NewSampleDocument()
	id := doc.Layers[0].Children[0].ID
	m := geom.Translation(3, 4)
	doc.Layers = document.UpdateByID(doc.Layers, id, document.Patch{M: &m})

	if err := s.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != doc.Name || document.Count(got.Layers) != document.Count(doc.Layers) {
		t.Errorf("loaded %q with %d layers", got.Name, document.Count(got.Layers))
	}
	n, ok := document.FindByID(got.Layers, id)
	if !ok || n.M != m {
		t.Errorf("layer %s: found=%v M=%v", id, ok, n.M)
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	if _, err := s.Load(ctx, "doc_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "doc_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first := document.NewSampleDocument()
	second := document.NewSampleDocument()
	second.Name = "Second"
	for _, d := range []*document.Document{first, second} {
		if err := s.Save(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("List = %+v, want newest first", list)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	list, _ = s.List(ctx)
	if len(list) != 1 || list[0].Name != "Second" {
		t.Errorf("List after delete = %+v", list)
	}
}
