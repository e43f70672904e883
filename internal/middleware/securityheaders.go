package middleware

import (
	"net/http"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// SecurityHeaders is applied to the JSON API. Responses are never framed,
// never sniffed and never leak the request URL as a referrer. hsts adds
// Strict-Transport-Security and should only be set when serving TLS.
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return headers(hsts, map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
	})
}

// UploadHeaders is applied to stored files under /uploads/. Files must be
// embeddable as <img> from the gallery origin, but an uploaded SVG or HTML
// document opened directly runs sandboxed with no scripts.
func UploadHeaders(hsts bool) func(http.Handler) http.Handler {
	return headers(hsts, map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"Content-Security-Policy":      "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; sandbox",
		"Cross-Origin-Resource-Policy": "cross-origin",
		"Referrer-Policy":              "no-referrer",
	})
}

func headers(hsts bool, set map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range set {
				h.Set(k, v)
			}
			if hsts {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
