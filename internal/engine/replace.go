package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/inamate/psdedit/internal/asset"
)

var (
	// ErrNoSelection resolves a content request when the picker returns
	// without a file, or when no layer is selected.
	ErrNoSelection = errors.New("engine: no selection")

	errEmptyContent = errors.New("engine: empty content")
)

// Picker asks the user for a replacement image. It returns a nil reader
// when the user dismissed the prompt.
type Picker func(ctx context.Context) (io.ReadCloser, error)

// ContentResult is the outcome of a content request.
type ContentResult struct {
	LayerID string
	Image   *image.NRGBA
	Err     error
}

// RequestContent runs picker on its own goroutine and decodes what it
// returns. The result arrives on the returned channel exactly once;
// cancelling ctx resolves it with the context error even if the picker
// never returns. The engine is not touched until ApplyReplacement.
func (e *Engine) RequestContent(ctx context.Context, layerID string, picker Picker) <-chan ContentResult {
	out := make(chan ContentResult, 1)

	if layerID == "" {
		out <- ContentResult{Err: ErrNoSelection}
		return out
	}

	go func() {
		done := make(chan ContentResult, 1)
		go func() {
			done <- pick(ctx, layerID, picker)
		}()

		select {
		case res := <-done:
			out <- res
		case <-ctx.Done():
			out <- ContentResult{LayerID: layerID, Err: ctx.Err()}
		}
	}()
	return out
}

func pick(ctx context.Context, layerID string, picker Picker) ContentResult {
	rc, err := picker(ctx)
	if err != nil {
		return ContentResult{LayerID: layerID, Err: fmt.Errorf("pick content: %w", err)}
	}
	if rc == nil {
		return ContentResult{LayerID: layerID, Err: ErrNoSelection}
	}
	defer rc.Close()

	img, _, err := asset.Decode(rc)
	if err != nil {
		return ContentResult{LayerID: layerID, Err: err}
	}
	return ContentResult{LayerID: layerID, Image: img}
}

// ApplyReplacement installs a resolved content request. A failed result
// is returned unchanged and the layer keeps its previous content.
func (e *Engine) ApplyReplacement(res ContentResult) error {
	if res.Err != nil {
		return res.Err
	}
	return e.ReplaceContent(res.LayerID, res.Image)
}
