package middleware

import (
	"mime"
	"net/http"

	"github.com/greennav/greennav/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json. Handlers
// that set their own type keep it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON answers 415 when a request body is declared as anything but JSON.
// Requests without a Content-Type are let through and fail at decode instead.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				models.ForStatus(http.StatusUnsupportedMediaType, GetRequestID(r.Context()),
					"Content-Type must be application/json").Respond(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
