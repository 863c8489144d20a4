package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizdesk/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct{}

func (stubValidator) ValidateToken(tok string) (*service.Claims, error) {
	if tok == "good" {
		return &service.Claims{Admin: true}, nil
	}
	return nil, errors.New("bad token")
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		header  string
		query   string
		want    int
	}{
		{"gate off", false, "", "", http.StatusOK},
		{"no token", true, "", "", http.StatusUnauthorized},
		{"bad token", true, "Bearer nope", "", http.StatusUnauthorized},
		{"bearer", true, "Bearer good", "", http.StatusOK},
		{"query token", true, "", "good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", RequireAdmin(stubValidator{}, tt.enabled), func(c *gin.Context) {
				if tt.enabled && GetClaims(c) == nil {
					t.Error("claims not set")
				}
				c.Status(http.StatusOK)
			})
			target := "/x"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiterRefills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two attempts should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third attempt should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other IPs have their own bucket")
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("bucket should refill after the interval")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, time.Minute)
	r := gin.New()
	r.POST("/pin", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pin", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("quizdesk ", 500)
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Skipper: SkipPaths("/export")}))
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/export", func(c *gin.Context) { c.String(http.StatusOK, big) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/big")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("big body not compressed: %v", w.Header())
	}
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != big {
		t.Error("decompressed body mismatch")
	}

	if w := get("/small"); w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Errorf("small body: enc=%q body=%q", w.Header().Get("Content-Encoding"), w.Body.String())
	}
	if w := get("/export"); w.Header().Get("Content-Encoding") != "" || w.Body.String() != big {
		t.Errorf("skipped path was compressed")
	}
}

func TestCacheControl(t *testing.T) {
	r := gin.New()
	r.GET("/x", CacheControl("no-store"), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
