package middleware

import (
	"io"
	"net/http"
)

const DefaultMaxRequestBodyBytes = 1 << 20

// RequestBody caps the request body size and, once the handler is done,
// drains and closes whatever is left of it so the connection can be reused.
func RequestBody(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)

			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
