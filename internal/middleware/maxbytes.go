package middleware

import (
	"errors"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON and form bodies on the auth routes.
const DefaultMaxBodyBytes = 1 << 20

// MaxBytes wraps the request body in http.MaxBytesReader. Reading past the
// limit fails with *http.MaxBytesError and closes the connection after the
// response; handlers turn that error into 413 with BodyTooLarge.
// A limit of zero or less selects DefaultMaxBodyBytes.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyTooLarge reports whether err came from a body cut off by MaxBytes.
func BodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
