package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"trip_hotel/internal/adapters/observability"
)

// Timeout bounds every request; image bodies are small enough to buffer.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

// statusWriter remembers the first status and counts body bytes.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Access records route metrics and writes one log line per request. Listing
// routes carry the requested hotel_id; list calls carry the city filter.
func Access(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			took := time.Since(start)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := sw.code()
			observability.ObserveHTTP(route, r.Method, status, took)

			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = l.Error()
			case status >= 400 && status != http.StatusNotFound:
				ev = l.Warn()
			default:
				ev = l.Info()
			}
			if id := chi.URLParam(r, "externalID"); id != "" {
				ev = ev.Str("hotel_id", id)
			}
			if city := r.URL.Query().Get("city"); city != "" {
				ev = ev.Str("city", city)
			}
			if status == http.StatusNotModified {
				ev = ev.Bool("etag_hit", true)
			}
			ev.Str("request_id", chimw.GetReqID(r.Context())).
				Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Int("bytes", sw.bytes).
				Dur("duration", took).
				Str("remote", clientIP(r)).
				Msg("http_request")
		})
	}
}

// clientIP strips the port; chimw.RealIP has already applied forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
