package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/psdedit/internal/asset"
	"github.com/inamate/psdedit/internal/export"
)

type Handler struct {
	service   *Service
	maxUpload int64
}

func NewHandler(service *Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = asset.DefaultMaxUpload
	}
	return &Handler{service: service, maxUpload: maxUpload}
}

// Routes registers the document endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	exportHandler := export.NewHandler(h.service)
	exportHandler.IsNotFound = func(err error) bool { return errors.Is(err, ErrNotFound) }

	r.HandleFunc("/documents", h.List).Methods("GET")
	r.HandleFunc("/documents", h.Create).Methods("POST")
	r.HandleFunc("/documents/{id}", h.Get).Methods("GET")
	r.HandleFunc("/documents/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/documents/{id}/render.png", h.Render).Methods("GET")
	r.HandleFunc("/documents/{id}/export", exportHandler.Export).Methods("GET")
	r.HandleFunc("/documents/{id}/layers/{layerId}", h.UpdateLayer).Methods("PATCH")
	r.HandleFunc("/documents/{id}/layers/{layerId}/content", h.ReplaceContent).Methods("POST")
}

type layerRequest struct {
	Visible *bool `json:"visible"`
}

// Create imports a bundle manifest from the request body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "bundle too large"})
		return
	}

	doc, err := h.service.Import(r.Context(), data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("document imported", "id", doc.ID, "name", doc.Name)
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Render streams the composite as PNG.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	img, _, err := h.service.Composite(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.FormatPNG.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	if err := export.Encode(w, img, export.FormatPNG, 0); err != nil {
		slog.Error("write render", "error", err)
	}
}

func (h *Handler) UpdateLayer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req layerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Visible == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "visible is required"})
		return
	}

	doc, err := h.service.SetVisibility(r.Context(), vars["id"], vars["layerId"], *req.Visible)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// ReplaceContent takes a multipart "file" upload and swaps it into the layer.
func (h *Handler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	img, upload, err := asset.ReadUpload(w, r, h.maxUpload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid upload: %v", err)})
		return
	}

	doc, err := h.service.ReplaceContent(r.Context(), vars["id"], vars["layerId"], img)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("layer content replaced", "id", vars["id"], "layer", vars["layerId"],
		"format", upload.Format, "width", upload.Width, "height", upload.Height)
	writeJSON(w, http.StatusOK, doc)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
	case errors.Is(err, ErrLayerNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "layer not found"})
	case errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
