package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/api/response"
	"github.com/greennav/greennav/internal/featureflags"
)

// FlagService manages runtime feature flags.
type FlagService interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
	SetFlags(ctx context.Context, updates []featureflags.FlagUpdate) ([]*featureflags.Flag, error)
	ResetFlag(ctx context.Context, key string) error
	InvalidateCache()
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service FlagService
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service FlagService, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, featureflags.SortedList(h.service.GetAllFlags(r.Context())))
}

// UpsertFeatureFlags handles PUT /admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input featureflags.FlagUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if len(input.Updates) == 0 {
		response.BadRequest(w, r, "no updates given", []models.FieldError{
			{Field: "updates", Message: "must not be empty", Code: "REQUIRED"},
		})
		return
	}

	updated, err := h.service.SetFlags(r.Context(), input.Updates)
	if err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) || errors.Is(err, featureflags.ErrInvalidFlagValue) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to store feature flags")
		return
	}

	keys := make([]string, len(updated))
	for i, f := range updated {
		keys[i] = f.Key
	}
	h.logger.Info().
		Str("subject", GetSubject(r.Context())).
		Strs("flags", keys).
		Str("reason", input.Reason).
		Msg("feature flags changed")

	response.JSON(w, r, http.StatusOK, featureflags.SortedList(h.service.GetAllFlags(r.Context())))
}

// ResetFeatureFlag handles DELETE /admin/feature-flags/{key} - restore the default.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.service.ResetFlag(r.Context(), key); err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Str("flag", key).Msg("failed to reset feature flag")
		response.InternalError(w, r, "failed to reset feature flag")
		return
	}

	h.logger.Info().
		Str("subject", GetSubject(r.Context())).
		Str("flag", key).
		Msg("feature flag reset")
	response.NoContent(w, r)
}

// InvalidateCache handles POST /admin/feature-flags/invalidate - drop cached flags.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
