package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"cofind/internal/domain"
)

func TestAnalyzeFailureMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty text", fmt.Errorf("%w: text is empty", domain.ErrInvalidInput), 400, "INVALID_REQUEST"},
		{"quota", fmt.Errorf("%w: boom", domain.ErrQuotaExceeded), 402, "QUOTA_EXCEEDED"},
		{"rate", fmt.Errorf("%w: slow down", domain.ErrRateLimited), 429, "RATE_LIMIT"},
		{"auth", fmt.Errorf("%w: bad key", domain.ErrUnauthorized), 401, "UNAUTHORIZED"},
		{"api", fmt.Errorf("%w: 500", domain.ErrLLM), 500, "API_ERROR"},
		// unclassified errors never borrow a provider code from their text
		{"source", errors.New("load shops: dial tcp :429 refused"), 500, "API_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, msg := analyzeFailure(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("got %d %s, want %d %s", status, code, tc.status, tc.code)
			}
			if msg == "" {
				t.Fatal("message must not be empty")
			}
		})
	}
}

func TestWriteCachedETag(t *testing.T) {
	v := map[string]string{"name": "Kopi Tiam"}

	rr := httptest.NewRecorder()
	writeCached(rr, httptest.NewRequest(http.MethodGet, "/api/coffeeshops", nil), v)
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" || etag[:2] != `W/` {
		t.Fatalf("weak etag expected, got %q", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/coffeeshops", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	writeCached(rr, req, v)
	if rr.Code != http.StatusNotModified || rr.Body.Len() != 0 {
		t.Fatalf("want empty 304, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]struct {
		want int
		ok   bool
	}{
		"":           {50, true},
		"?limit=10":  {10, true},
		"?limit=0":   {0, false},
		"?limit=x":   {0, false},
		"?limit=201": {0, false},
	}
	for q, tc := range cases {
		got, ok := parseLimit(httptest.NewRequest(http.MethodGet, "/x"+q, nil), 50)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%q: got (%d,%v), want (%d,%v)", q, got, ok, tc.want, tc.ok)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("shop x: %w", domain.ErrNotFound), 404},
		{fmt.Errorf("review: %w", domain.ErrAlreadyExists), 409},
		{fmt.Errorf("%w: rating", domain.ErrInvalidInput), 400},
		{fmt.Errorf("%w: review 3 belongs to someone else", domain.ErrForbidden), 403},
		{errors.New("disk full"), 500},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeError(rr, tc.err)
		if rr.Code != tc.want {
			t.Errorf("%v: status=%d want %d", tc.err, rr.Code, tc.want)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("content-type=%q", ct)
		}
	}
}

func TestRequireUser(t *testing.T) {
	rr := httptest.NewRecorder()
	if _, ok := requireUser(rr, httptest.NewRequest(http.MethodGet, "/api/favorites", nil)); ok || rr.Code != 401 {
		t.Fatalf("missing header: ok=%v status=%d", ok, rr.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req.Header.Set("X-User-ID", " u1 ")
	uid, ok := requireUser(httptest.NewRecorder(), req)
	if !ok || uid != "u1" {
		t.Fatalf("got %q %v", uid, ok)
	}
}

func TestReviewID(t *testing.T) {
	cases := map[string]struct {
		want int64
		ok   bool
	}{
		"12":  {12, true},
		"0":   {0, false},
		"-4":  {0, false},
		"abc": {0, false},
	}
	for raw, tc := range cases {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("review_id", raw)
		req := httptest.NewRequest(http.MethodPut, "/api/reviews/"+raw, nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		rr := httptest.NewRecorder()
		got, ok := reviewID(rr, req)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%q: got (%d,%v), want (%d,%v)", raw, got, ok, tc.want, tc.ok)
		}
		if !ok && rr.Code != http.StatusBadRequest {
			t.Errorf("%q: status=%d want 400", raw, rr.Code)
		}
	}
}
