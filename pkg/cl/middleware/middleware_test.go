package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

func TestLocalhostOnly(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		wantCode   int
	}{
		{name: "ipv4 loopback", remoteAddr: "127.0.0.1:5000", wantCode: http.StatusOK},
		{name: "ipv6 loopback", remoteAddr: "[::1]:5000", wantCode: http.StatusOK},
		{name: "other loopback", remoteAddr: "127.0.0.2:5000", wantCode: http.StatusOK},
		{name: "remote", remoteAddr: "192.168.1.20:5000", wantCode: http.StatusForbidden},
		{name: "local proxy for local client", remoteAddr: "127.0.0.1:5000", xff: "127.0.0.1", wantCode: http.StatusOK},
		{name: "local proxy for remote client", remoteAddr: "127.0.0.1:5000", xff: "10.0.0.8, 127.0.0.1", wantCode: http.StatusForbidden},
		{name: "remote spoofing header", remoteAddr: "10.0.0.8:5000", xff: "127.0.0.1", wantCode: http.StatusForbidden},
	}

	h := LocalhostOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestDefaultStackRecoversPanics(t *testing.T) {
	r := chi.NewRouter()
	DefaultStack(r, logger.NewNoopLogger())
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
