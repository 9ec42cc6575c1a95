package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/api/response"
	"github.com/greennav/greennav/internal/comparator"
	"github.com/greennav/greennav/internal/exposure"
	"github.com/greennav/greennav/internal/routing"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Comparator compares route variants by exposure.
type Comparator interface {
	CompareRoutes(ctx context.Context, origin, destination routing.Coordinate, activity string) (*comparator.Comparison, error)
	CompareMany(ctx context.Context, routes []comparator.NamedRoute, activity string) (*comparator.MultiComparison, error)
}

// RouteHandler handles route comparison endpoints.
type RouteHandler struct {
	comparator Comparator
	fallbacks  FallbackRecorder
	logger     zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler. fallbacks may be nil.
func NewRouteHandler(cmp Comparator, fallbacks FallbackRecorder, logger zerolog.Logger) *RouteHandler {
	if fallbacks == nil {
		fallbacks = nopFallbacks{}
	}
	return &RouteHandler{comparator: cmp, fallbacks: fallbacks, logger: logger}
}

// CompareRoutes handles POST /compare-routes - fastest route versus a cleaner detour.
func (h *RouteHandler) CompareRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.CompareRoutesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if input.Origin == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "origin", Message: "is required", Code: "REQUIRED"})
	}
	if input.Destination == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "destination", Message: "is required", Code: "REQUIRED"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "origin and destination are required", fieldErrors)
		return
	}

	activity := input.Activity
	if activity == "" {
		activity = exposure.DefaultActivity
	}

	cmp, err := h.comparator.CompareRoutes(r.Context(), toCoordinate(*input.Origin), toCoordinate(*input.Destination), activity)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}

	if cmp.AQIFallback {
		h.fallbacks.RecordFallback(r.Context(), "live_aqi", "lookup_failed")
	}
	if cmp.DetourFallback {
		h.fallbacks.RecordFallback(r.Context(), "detour_route", "fastest_reuse")
	}

	response.JSON(w, r, http.StatusOK, models.CompareRoutesResponse{
		Fastest:        toRouteVariant(cmp.Fastest),
		Cleanest:       toRouteVariant(cmp.Cleanest),
		Recommendation: cmp.Recommendation,
	})
}

// CompareMany handles POST /compare-routes/multi - ranks named routes by total exposure.
func (h *RouteHandler) CompareMany(w http.ResponseWriter, r *http.Request) {
	var input models.MultiRouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	routes := make([]comparator.NamedRoute, len(input.Routes))
	for i, in := range input.Routes {
		wps := make([]comparator.Waypoint, len(in.Waypoints))
		for j, wp := range in.Waypoints {
			wps[j] = comparator.Waypoint{Lat: wp.Lat, Lon: wp.Lon, DwellMinutes: wp.DwellMinutes, AQI: wp.AQI}
		}
		routes[i] = comparator.NamedRoute{Name: in.Name, Waypoints: wps}
	}

	activity := input.Activity
	if activity == "" {
		activity = exposure.DefaultActivity
	}

	cmp, err := h.comparator.CompareMany(r.Context(), routes, activity)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}

	out := models.MultiRouteResponse{
		Routes:         make([]models.RouteExposure, len(cmp.Routes)),
		Cleanest:       cmp.Cleanest,
		Recommendation: cmp.Recommendation,
	}
	for i, re := range cmp.Routes {
		points := make([]models.PointExposure, len(re.Points))
		for j, p := range re.Points {
			points[j] = models.PointExposure{
				Lat:          p.Lat,
				Lon:          p.Lon,
				AQI:          p.AQI,
				AQISource:    p.AQISource,
				DwellMinutes: p.DwellMinutes,
				Exposure:     p.Exposure,
			}
			if p.AQISource == comparator.AQIFallback {
				h.fallbacks.RecordFallback(r.Context(), "live_aqi", "lookup_failed")
			}
		}
		out.Routes[i] = models.RouteExposure{Name: re.Name, TotalExposure: re.TotalExposure, Points: points}
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *RouteHandler) writeCompareError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, comparator.ErrNoRoutes):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "routes", Message: "must not be empty", Code: "REQUIRED"},
		})
	case errors.Is(err, comparator.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("route comparison failed")
		response.BadGateway(w, r, "route comparison failed")
	}
}

func toCoordinate(ll models.LatLon) routing.Coordinate {
	return routing.Coordinate{Lat: ll[0], Lon: ll[1]}
}

func toRouteVariant(v comparator.Variant) models.RouteVariant {
	path := make([]models.LatLon, len(v.Path))
	for i, c := range v.Path {
		path[i] = models.LatLon{c.Lat, c.Lon}
	}
	return models.RouteVariant{
		Path:           path,
		Time:           v.Minutes,
		AQI:            v.AQI,
		PollutionLoad:  v.PollutionLoad,
		DistanceMeters: v.DistanceMeters,
		Source:         v.Source,
	}
}
