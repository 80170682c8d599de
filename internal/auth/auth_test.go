package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T, password string) *Service {
	t.Helper()
	hash := ""
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		hash = string(b)
	}
	return NewService(hash, "test-secret")
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		hashFor  string
		password string
		wantErr  error
	}{
		{"correct password", "hunter22", "hunter22", nil},
		{"wrong password", "hunter22", "nope", ErrInvalidCredentials},
		{"open access", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, tt.hashFor)
			res, err := s.Login(context.Background(), "Ada", tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			u, err := s.ValidateToken(res.Token)
			if err != nil {
				t.Fatal(err)
			}
			if u != res.User || u.DisplayName != "Ada" {
				t.Errorf("token user = %+v, want %+v", u, res.User)
			}
		})
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := newService(t, "")
	res, err := s.Login(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.User.DisplayName != "Anonymous" {
		t.Errorf("DisplayName = %q", res.User.DisplayName)
	}

	other := NewService("", "other-secret")
	if _, err := other.ValidateToken(res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret: err = %v", err)
	}
	if _, err := s.ValidateToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err = %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := s.ValidateToken(res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: err = %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newService(t, "hunter22")
	res, err := s.Login(context.Background(), "Ada", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := s.issueToken(User{ID: "sess_01h455vb4pex5vsknk084sn02q", DisplayName: "x"})
	if err != nil {
		t.Fatal(err)
	}

	var seen User
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"non-user subject", "Bearer " + foreign, http.StatusUnauthorized},
		{"valid", "Bearer " + res.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
	if seen.ID != res.User.ID {
		t.Errorf("context user = %+v, want %+v", seen, res.User)
	}
}

func TestAuthMiddlewareOpenAccess(t *testing.T) {
	s := newService(t, "")

	var seen User
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(seen.ID, "anon-") || seen.DisplayName != "Anonymous" {
		t.Errorf("user = %+v, want anonymous", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token on open editor: status = %d, want 401", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	h := NewHandler(newService(t, "hunter22"))
	tests := []struct {
		body   string
		status int
	}{
		{`{"displayName":"Ada","password":"hunter22"}`, http.StatusOK},
		{`{"displayName":"Ada","password":"wrong"}`, http.StatusUnauthorized},
		{`{"displayName":"Ada"}`, http.StatusBadRequest},
		{`{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))
		if rec.Code != tt.status {
			t.Errorf("body %s: status = %d, want %d", tt.body, rec.Code, tt.status)
		}
	}
}
