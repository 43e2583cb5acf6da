package metrics

import (
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizeRoute collapses path parameters back into their route
// placeholders so the path label stays low-cardinality: every job ID,
// run ID, and symbol would otherwise mint its own series.
func normalizeRoute(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "v1" {
		return path
	}
	switch parts[2] {
	case "backtest":
		if len(parts) == 4 {
			return "/api/v1/backtest/{id}"
		}
	case "signals":
		if len(parts) == 4 {
			return "/api/v1/signals/{symbol}"
		}
	case "runs":
		if len(parts) == 4 {
			return "/api/v1/runs/{id}"
		}
		if len(parts) == 5 && parts[4] == "trades" {
			return "/api/v1/runs/{id}/trades"
		}
	}
	return path
}

// HTTPMiddleware returns middleware that records HTTP metrics.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			reg.RecordRequest(r.Method, normalizeRoute(r.URL.Path), rw.statusCode, duration)
		})
	}
}
