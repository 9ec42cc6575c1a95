// Package response writes JSON and RFC7807 bodies for the GreenNav handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/greennav/greennav/internal/api/middleware"
	"github.com/greennav/greennav/internal/api/models"
)

func echoRequestID(w http.ResponseWriter, r *http.Request) string {
	id := middleware.GetRequestID(r.Context())
	if id != "" {
		w.Header().Set("X-Request-Id", id)
	}
	return id
}

// JSON encodes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	echoRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	echoRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Problem writes the standard problem for status.
func Problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	models.ForStatus(status, middleware.GetRequestID(r.Context()), detail).Respond(w, r)
}

// BadRequest writes a 400 listing the offending fields.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors).Respond(w, r)
}

// BadGateway reports an upstream (feed, router or model) failure.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, http.StatusBadGateway, detail)
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, http.StatusInternalServerError, detail)
}
