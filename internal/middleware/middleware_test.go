package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestLoggerKeepsStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CORS(ParseOrigins("http://localhost:5173, http://localhost:3000"))(next)

	tests := []struct {
		method     string
		origin     string
		status     int
		wantHeader string
	}{
		{http.MethodGet, "http://localhost:5173", http.StatusOK, "http://localhost:5173"},
		{http.MethodGet, "http://evil.example", http.StatusOK, ""},
		{http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/api/documents", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.origin, rec.Code, tt.status)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
			t.Errorf("%s %s: allow-origin = %q, want %q", tt.method, tt.origin, got, tt.wantHeader)
		}
	}
}

func TestOriginHosts(t *testing.T) {
	got := OriginHosts([]string{"http://localhost:5173", "https://edit.example.com/", "*"})
	want := []string{"localhost:5173", "edit.example.com", "*"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
