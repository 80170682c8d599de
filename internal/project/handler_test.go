package project

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/psdedit/internal/bundle"
	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/store"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T) (*mux.Router, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	r := mux.NewRouter()
	NewHandler(NewService(st, nil, composite.SamplingNearest), 1<<20).Routes(r)
	return r, st
}

func do(t *testing.T, r http.Handler, method, url string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func importSquare(t *testing.T, r http.Handler) Document {
	t.Helper()
	manifest, err := json.Marshal(bundle.Manifest{
		Name: "square", Width: 100, Height: 100,
		Layers: []bundle.Layer{{Name: "red", Right: 20, Bottom: 20, Image: pngBytes(t, 20, 20)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := do(t, r, http.MethodPost, "/documents", manifest, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	var doc Document
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestImportAndRender(t *testing.T) {
	r, _ := newTestServer(t)
	doc := importSquare(t, r)

	rec := do(t, r, http.MethodGet, "/documents/"+doc.ID+"/render.png", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("render status = %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.RGBAModel.Convert(img.At(5, 5)).(color.RGBA); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("(5,5) = %v, want red", got)
	}
	if _, _, _, a := img.At(50, 50).RGBA(); a != 0 {
		t.Error("(50,50) not transparent")
	}
}

func TestGetListDelete(t *testing.T) {
	r, _ := newTestServer(t)
	doc := importSquare(t, r)

	rec := do(t, r, http.MethodGet, "/documents/"+doc.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got Document
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Name != "square" || len(got.Layers) != 1 || got.Layers[0].Name != "red" {
		t.Errorf("get = %+v", got)
	}

	rec = do(t, r, http.MethodGet, "/documents", nil, "")
	var list []store.Summary
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != doc.ID {
		t.Errorf("list = %+v", list)
	}

	if rec := do(t, r, http.MethodDelete, "/documents/"+doc.ID, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/documents/"+doc.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestImportInvalid(t *testing.T) {
	r, _ := newTestServer(t)
	tests := []string{`{`, `{"width":0,"height":0}`}
	for _, body := range tests {
		if rec := do(t, r, http.MethodPost, "/documents", []byte(body), "application/json"); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestUpdateLayerVisibility(t *testing.T) {
	r, _ := newTestServer(t)
	doc := importSquare(t, r)
	layerID := doc.Layers[0].ID

	rec := do(t, r, http.MethodPatch, "/documents/"+doc.ID+"/layers/"+layerID, []byte(`{"visible":false}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body)
	}
	var got Document
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Layers[0].Visible || got.Version != doc.Version+1 {
		t.Errorf("visible=%v version=%d", got.Layers[0].Visible, got.Version)
	}

	// Persisted.
	rec = do(t, r, http.MethodGet, "/documents/"+doc.ID, nil, "")
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Layers[0].Visible {
		t.Error("visibility change not saved")
	}

	tests := []struct {
		url    string
		body   string
		status int
	}{
		{"/documents/" + doc.ID + "/layers/layer_missing", `{"visible":true}`, http.StatusNotFound},
		{"/documents/doc_missing/layers/" + layerID, `{"visible":true}`, http.StatusNotFound},
		{"/documents/" + doc.ID + "/layers/" + layerID, `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, r, http.MethodPatch, tt.url, []byte(tt.body), "application/json"); rec.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.url, tt.body, rec.Code, tt.status)
		}
	}
}

func TestReplaceContentUpload(t *testing.T) {
	r, _ := newTestServer(t)
	doc := importSquare(t, r)
	layerID := doc.Layers[0].ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "new.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(pngBytes(t, 40, 10))
	mw.Close()

	rec := do(t, r, http.MethodPost, "/documents/"+doc.ID+"/layers/"+layerID+"/content", body.Bytes(), mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var got Document
	json.NewDecoder(rec.Body).Decode(&got)
	if w := got.Layers[0].Rect.Width(); w != 40 {
		t.Errorf("rect width = %v, want 40", w)
	}

	rec = do(t, r, http.MethodPost, "/documents/"+doc.ID+"/layers/"+layerID+"/content", []byte("nope"), "text/plain")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad upload status = %d", rec.Code)
	}
}

func TestExportRoute(t *testing.T) {
	r, _ := newTestServer(t)
	doc := importSquare(t, r)

	rec := do(t, r, http.MethodGet, "/documents/"+doc.ID+"/export?format=webp", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, `square.webp`) {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec := do(t, r, http.MethodGet, "/documents/doc_missing/export", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing export status = %d", rec.Code)
	}
}
