package middleware

import (
	"net/http"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, X-Request-ID"
)

// OriginChecker decides which browser origins may call the relay host
type OriginChecker interface {
	IsAllowedOrigin(origin string) bool
	IsLocalHost(hostport string) bool
}

// WithCORS grants the configured front-end origins access and turns away every
// other browser origin. Requests without an Origin header (CLI, native shells)
// and same-origin requests pass untouched, provided the Host names the relay
// host itself and not some name rebound to it.
func WithCORS(next http.Handler, origins OriginChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || (origins.IsLocalHost(r.Host) && isSameOrigin(origin, r)) {
			next.ServeHTTP(w, r)
			return
		}

		if !origins.IsAllowedOrigin(origin) {
			http.Error(w, "Origin not allowed", http.StatusForbidden)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Expose-Headers", HeaderRequestID)

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSameOrigin(origin string, r *http.Request) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
