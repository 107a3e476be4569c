package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"gearshed-backend/pkg/config"
)

// Logger returns the request logging middleware for the environment:
// JSON lines in production, a concise human-readable format otherwise.
func Logger(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			userInfo := "anonymous"
			if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
				userInfo = user.Email
			}

			if cfg.IsProduction() {
				log.Printf(`{"time":"%s","method":"%s","path":"%s","status":%d,"bytes":%d,"duration":"%s","user":"%s","ip":"%s","request_id":"%s"}`,
					time.Now().Format(time.RFC3339),
					r.Method,
					r.URL.Path,
					ww.Status(),
					ww.BytesWritten(),
					duration,
					userInfo,
					clientIP(r),
					chimiddleware.GetReqID(r.Context()),
				)
			} else {
				log.Printf("%-6s %s %d %s %s",
					r.Method,
					r.URL.Path,
					ww.Status(),
					duration,
					userInfo,
				)
			}
		})
	}
}

// clientIP resolves the originating address, honoring proxy headers.
// X-Forwarded-For may carry the whole hop chain; only the first entry
// is the client.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
