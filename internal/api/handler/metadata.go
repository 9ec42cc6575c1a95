package handler

import (
	"net/http"

	"github.com/greennav/greennav/internal/advisory"
	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/api/response"
	"github.com/greennav/greennav/internal/exposure"
)

// MetadataHandler serves the static tables clients render.
type MetadataHandler struct {
	scorer exposure.Scorer
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(scorer exposure.Scorer) *MetadataHandler {
	return &MetadataHandler{scorer: scorer}
}

// ListActivities handles GET /metadata/activities.
func (h *MetadataHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities := exposure.Activities()
	items := make([]models.Activity, len(activities))
	for i, a := range activities {
		items[i] = models.Activity{Name: a.Name, Factor: a.Factor}
	}
	response.JSON(w, r, http.StatusOK, models.Activities{
		Default:       exposure.DefaultActivity,
		UnknownFactor: h.scorer.Factor(""),
		Formula:       exposure.FormulaDescription,
		Items:         items,
	})
}

// ListBands handles GET /metadata/bands.
func (h *MetadataHandler) ListBands(w http.ResponseWriter, r *http.Request) {
	bands := advisory.Bands()
	items := make([]models.Band, len(bands))
	for i, b := range bands {
		items[i] = models.Band{Level: string(b.Level), MinAQI: b.MinAQI, Advice: b.Advice}
		if !b.Open {
			items[i].MaxAQI = floatPtr(b.MaxAQI)
		}
	}
	response.JSON(w, r, http.StatusOK, models.Bands{Items: items})
}
