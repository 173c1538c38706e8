package httpx

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/form-flow/log"
)

// AccessLog logs one line per request with its status, size and latency.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		entry := log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   m.Code,
			"bytes":    m.Written,
			"duration": m.Duration.String(),
			"remote":   r.RemoteAddr,
		})
		if id := middleware.GetReqID(r.Context()); id != "" {
			entry = entry.WithField("request_id", id)
		}

		switch {
		case m.Code >= http.StatusInternalServerError:
			entry.Error("http.request")
		case m.Code >= http.StatusBadRequest:
			entry.Warn("http.request")
		default:
			entry.Info("http.request")
		}
	})
}
