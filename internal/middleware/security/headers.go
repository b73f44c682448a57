package security

import (
	"net/http"
	"strconv"
	"time"
)

// apiHeaders suit a JSON API: nothing it returns is a document, a script
// or something to frame, and nothing should be cached by intermediaries.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// DefaultHSTS is one year.
const DefaultHSTS = 365 * 24 * time.Hour

// Headers sets the API response headers on every request. Strict-Transport-
// Security is added only on TLS connections and only when hsts is positive.
func Headers(hsts time.Duration) func(http.Handler) http.Handler {
	hstsValue := ""
	if hsts > 0 {
		hstsValue = "max-age=" + strconv.FormatInt(int64(hsts/time.Second), 10) + "; includeSubDomains"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if r.TLS != nil && hstsValue != "" {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
