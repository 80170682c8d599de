package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// Source renders a stored document for export.
type Source interface {
	Composite(ctx context.Context, id string) (img image.Image, name string, err error)
}

type Handler struct {
	source Source
	// IsNotFound classifies source errors that should map to 404.
	IsNotFound func(error) bool
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// Export handles GET /documents/{id}/export?format=png|jpeg|webp&quality=N.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, "invalid format: must be png, jpeg, or webp", http.StatusBadRequest)
		return
	}
	quality, _ := strconv.Atoi(r.URL.Query().Get("quality"))

	img, name, err := h.source.Composite(r.Context(), id)
	if err != nil {
		if h.IsNotFound != nil && h.IsNotFound(err) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		slog.Error("render for export", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("encode export", "id", id, "format", format, "error", err)
		http.Error(w, fmt.Sprintf("encoding failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, sanitize(name), format.Ext()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())

	slog.Info("export complete", "id", id, "format", format, "size", buf.Len())
}

// sanitize keeps filenames to ASCII letters, digits, dash and underscore.
func sanitize(name string) string {
	if name == "" {
		name = "document"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
