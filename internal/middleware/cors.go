package middleware

import (
	"net/http"
	"strings"
)

// CORS returns a middleware allowing requests from origin ("*" allows any).
func CORS(origin string) func(http.Handler) http.Handler {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := origin
			if origin != "*" {
				allowed = ""
				if requested := r.Header.Get("Origin"); requested != "" && strings.EqualFold(requested, origin) {
					allowed = requested
				}
			}

			h := w.Header()
			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if allowed != "*" {
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Add("Vary", "Origin")
				}
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AllowsOrigin reports whether a websocket handshake from requested should be accepted.
func AllowsOrigin(origin, requested string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "*" || requested == "" {
		return true
	}
	return strings.EqualFold(origin, requested)
}
