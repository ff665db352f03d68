package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// LocalhostOnly rejects requests that don't originate from localhost.
// The preview server is a development tool and is not meant to be reachable
// from the network.
func LocalhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLocalhost(r) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLocalhost(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if host == "localhost" {
		return true
	}

	// Trust X-Forwarded-For only when the proxy itself is local.
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return false
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		fwd := net.ParseIP(strings.TrimSpace(first))
		return fwd != nil && fwd.IsLoopback()
	}
	return true
}

// RequestLog logs one debug line per request with status and duration.
func RequestLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond))
		})
	}
}

// DefaultStack applies the default middleware stack to a router.
func DefaultStack(r chi.Router, log logger.Logger) {
	r.Use(LocalhostOnly)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(RequestLog(log))
	r.Use(chimw.Timeout(60 * time.Second))
}
