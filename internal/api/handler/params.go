package handler

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/greennav/greennav/internal/api/models"
)

// queryParams reads typed query parameters and collects one FieldError per bad value.
type queryParams struct {
	values url.Values
	errors []models.FieldError
}

func newQueryParams(values url.Values) *queryParams {
	return &queryParams{values: values}
}

// float parses name as a float in [min, max]. A missing value uses def, or is an
// error when def is nil.
func (p *queryParams) float(name string, def *float64, min, max float64) float64 {
	raw := p.values.Get(name)
	if raw == "" {
		if def == nil {
			p.fail(name, "is required", "REQUIRED")
			return 0
		}
		return *def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(name, "must be a number", "INVALID_NUMBER")
		return 0
	}
	if v < min || v > max {
		p.fail(name, fmt.Sprintf("must be between %g and %g", min, max), "OUT_OF_RANGE")
		return 0
	}
	return v
}

// optionalInt parses name as an integer in [min, max]; nil when absent.
func (p *queryParams) optionalInt(name string, min, max int) *int {
	raw := p.values.Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "must be an integer", "INVALID_INTEGER")
		return nil
	}
	if v < min || v > max {
		p.fail(name, fmt.Sprintf("must be between %d and %d", min, max), "OUT_OF_RANGE")
		return nil
	}
	return &v
}

// integer parses name as an integer, using def when absent. No range check.
func (p *queryParams) integer(name string, def int) int {
	raw := p.values.Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "must be an integer", "INVALID_INTEGER")
		return 0
	}
	return v
}

func (p *queryParams) str(name, def string) string {
	if v := p.values.Get(name); v != "" {
		return v
	}
	return def
}

// latLon reads the lat and lon parameters, validated to WGS84 ranges.
func (p *queryParams) latLon(defLat, defLon *float64) (lat, lon float64) {
	lat = p.float("lat", defLat, -90, 90)
	lon = p.float("lon", defLon, -180, 180)
	return lat, lon
}

func (p *queryParams) fail(field, message, code string) {
	p.errors = append(p.errors, models.FieldError{Field: field, Message: message, Code: code})
}

func (p *queryParams) valid() bool {
	return len(p.errors) == 0
}

func floatPtr(v float64) *float64 {
	return &v
}
