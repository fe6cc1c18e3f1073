// Package middleware provides HTTP middleware for the collector API.
package middleware

import (
	"mime"
	"net/http"
)

// RequireJSON returns a middleware that rejects mutating requests whose
// Content-Type is not application/json. GET/HEAD/OPTIONS pass through.
func RequireJSON() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				writeUnsupportedMediaType(w)
				return
			}

			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				writeUnsupportedMediaType(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnsupportedMediaType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnsupportedMediaType)
	_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
}
