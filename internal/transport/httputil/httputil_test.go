package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name string
		prep func(r *http.Request)
		want string
	}{
		{"none", func(*http.Request) {}, ""},
		{"query", func(r *http.Request) { r.URL.RawQuery = "access_token=q1" }, "q1"},
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer h1") }, "h1"},
		{"header lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer h2") }, "h2"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenParam, Value: "c1"}) }, "c1"},
		{"query wins", func(r *http.Request) {
			r.URL.RawQuery = "access_token=q2"
			r.Header.Set("Authorization", "Bearer h3")
		}, "q2"},
		{"basic ignored", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.prep(r)
			if got := TokenFromRequest(r); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalid("x"), http.StatusBadRequest},
		{domain.ErrRoomExists, http.StatusBadRequest},
		{domain.Unauthenticated("x", nil), http.StatusUnauthorized},
		{domain.ErrRoomNotFound, http.StatusNotFound},
		{domain.RateLimited("x"), http.StatusTooManyRequests},
		{domain.Persistence("x", errors.New("db")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFromError(tt.err); got != tt.want {
			t.Fatalf("%v: got %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(context.Background(), rec, errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "password") || !strings.Contains(body, "internal error") {
		t.Fatalf("body = %s", body)
	}
}

func TestMiddlewareRequestID(t *testing.T) {
	var seen string
	h := MiddlewareRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("generated id not propagated: ctx=%q header=%q", seen, rec.Header().Get(HeaderRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Fatalf("incoming id not kept: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\n"+strings.Repeat("x", 80))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "" || strings.Contains(seen, " ") {
		t.Fatalf("invalid incoming id must be replaced, got %q", seen)
	}
}
