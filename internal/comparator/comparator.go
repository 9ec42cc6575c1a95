// Package comparator builds fastest and cleanest route variants and ranks named
// routes by total pollution exposure.
package comparator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/exposure"
	"github.com/greennav/greennav/internal/featureflags"
	"github.com/greennav/greennav/internal/routing"
)

// Recommendation accompanies every fastest/cleanest comparison.
const Recommendation = "Take the cleanest route: side streets lower your pollution load for a few extra minutes."

// Sources of a variant's path.
const (
	SourceFastestReuse = "fastest-reuse"
)

// Sources of a waypoint AQI.
const (
	AQISupplied = "supplied"
	AQILive     = "live"
	AQIFallback = "fallback"
)

var (
	// ErrNoRoutes indicates an empty multi-route request.
	ErrNoRoutes = errors.New("at least one route is required")
	// ErrInvalidCoordinates indicates an origin, destination or waypoint out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// RouteLookup fetches road routes.
type RouteLookup interface {
	Route(ctx context.Context, waypoints []routing.Coordinate) (*routing.Route, error)
	RouteOrStraightLine(ctx context.Context, origin, destination routing.Coordinate) *routing.Route
}

// AQILookup returns the live AQI at a point.
type AQILookup interface {
	AQI(ctx context.Context, lat, lon float64) (float64, error)
}

// Flags reports whether a feature flag is enabled.
type Flags interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the comparator.
type ServiceConfig struct {
	Routes RouteLookup
	AQI    AQILookup
	Flags  Flags
	Scorer exposure.Scorer
	Logger zerolog.Logger

	// FallbackAQI replaces a failed live lookup (default: 50).
	FallbackAQI float64
	// DetourOffsetDegrees nudges the midpoint in both axes (default: 0.004).
	DetourOffsetDegrees float64
	// CleanAQIDiscount scales the base AQI for the cleanest variant (default: 0.55).
	CleanAQIDiscount float64
	// DetourTimeFactor scales the fastest time when the detour fails (default: 1.2).
	DetourTimeFactor float64
}

// Service compares routes.
type Service struct {
	routes RouteLookup
	aqi    AQILookup
	flags  Flags
	scorer exposure.Scorer
	logger zerolog.Logger

	fallbackAQI      float64
	detourOffset     float64
	cleanDiscount    float64
	detourTimeFactor float64
}

// NewService creates a new comparator.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		routes:           cfg.Routes,
		aqi:              cfg.AQI,
		flags:            cfg.Flags,
		scorer:           cfg.Scorer,
		logger:           cfg.Logger,
		fallbackAQI:      cfg.FallbackAQI,
		detourOffset:     cfg.DetourOffsetDegrees,
		cleanDiscount:    cfg.CleanAQIDiscount,
		detourTimeFactor: cfg.DetourTimeFactor,
	}
	if s.fallbackAQI == 0 {
		s.fallbackAQI = 50.0
	}
	if s.detourOffset == 0 {
		s.detourOffset = 0.004
	}
	if s.cleanDiscount == 0 {
		s.cleanDiscount = 0.55
	}
	if s.detourTimeFactor == 0 {
		s.detourTimeFactor = 1.2
	}
	return s
}

// Variant is one annotated route option.
type Variant struct {
	Path           []routing.Coordinate
	AQI            float64
	Minutes        float64
	PollutionLoad  float64
	DistanceMeters float64
	Source         string
}

// Comparison is the fastest/cleanest pair for one trip.
type Comparison struct {
	Fastest        Variant
	Cleanest       Variant
	Recommendation string

	// AQIFallback is set when the base AQI is the fallback value.
	AQIFallback bool
	// DetourFallback is set when the cleanest path reuses the fastest one.
	DetourFallback bool
}

// CompareRoutes returns the fastest route and a detour through a nudged midpoint,
// both scored for activity. It only fails on invalid coordinates.
func (s *Service) CompareRoutes(ctx context.Context, origin, destination routing.Coordinate, activity string) (*Comparison, error) {
	if routing.ValidateCoordinate(origin) != nil || routing.ValidateCoordinate(destination) != nil {
		return nil, ErrInvalidCoordinates
	}

	fast := s.routes.RouteOrStraightLine(ctx, origin, destination)
	clean, detourFallback := s.detour(ctx, origin, destination, fast)

	baseAQI, aqiFallback := s.lookupAQI(ctx, origin.Lat, origin.Lon)
	cleanAQI := math.Round(baseAQI * s.cleanDiscount)

	cmp := &Comparison{
		Fastest: Variant{
			Path:           fast.Path,
			AQI:            baseAQI,
			Minutes:        fast.DurationMinutes,
			PollutionLoad:  s.scorer.Score(baseAQI, fast.DurationMinutes, activity),
			DistanceMeters: fast.DistanceMeters,
			Source:         fast.Provider,
		},
		Cleanest: Variant{
			Path:           clean.Path,
			AQI:            cleanAQI,
			Minutes:        clean.DurationMinutes,
			PollutionLoad:  s.scorer.Score(cleanAQI, clean.DurationMinutes, activity),
			DistanceMeters: clean.DistanceMeters,
			Source:         clean.Provider,
		},
		Recommendation: Recommendation,
		AQIFallback:    aqiFallback,
		DetourFallback: detourFallback,
	}

	s.logger.Debug().
		Float64("base_aqi", baseAQI).
		Float64("fast_min", cmp.Fastest.Minutes).
		Float64("clean_min", cmp.Cleanest.Minutes).
		Bool("aqi_fallback", aqiFallback).
		Bool("detour_fallback", detourFallback).
		Msg("routes compared")

	return cmp, nil
}

// DetourWaypoint is the origin/destination midpoint shifted by offset degrees.
func DetourWaypoint(origin, destination routing.Coordinate, offset float64) routing.Coordinate {
	return routing.Coordinate{
		Lat: (origin.Lat+destination.Lat)/2 + offset,
		Lon: (origin.Lon+destination.Lon)/2 + offset,
	}
}

// detour returns the 3-point route, or the fastest path with a slower time.
func (s *Service) detour(ctx context.Context, origin, destination routing.Coordinate, fast *routing.Route) (*routing.Route, bool) {
	reuse := func() *routing.Route {
		return &routing.Route{
			Path:            fast.Path,
			DurationMinutes: fast.DurationMinutes * s.detourTimeFactor,
			DistanceMeters:  fast.DistanceMeters,
			Provider:        SourceFastestReuse,
			Fallback:        true,
		}
	}

	if s.flags != nil && s.flags.IsEnabled(ctx, featureflags.FlagDisableDetourRouting) {
		return reuse(), true
	}

	mid := DetourWaypoint(origin, destination, s.detourOffset)
	route, err := s.routes.Route(ctx, []routing.Coordinate{origin, mid, destination})
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("waypoint_lat", mid.Lat).
			Float64("waypoint_lon", mid.Lon).
			Msg("detour route failed, reusing fastest path")
		return reuse(), true
	}
	return route, false
}

func (s *Service) lookupAQI(ctx context.Context, lat, lon float64) (float64, bool) {
	if s.aqi == nil {
		return s.fallbackAQI, true
	}
	aqi, err := s.aqi.AQI(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Float64("fallback_aqi", s.fallbackAQI).
			Msg("live AQI unavailable, using fallback")
		return s.fallbackAQI, true
	}
	return aqi, false
}

// Waypoint is a stop on a named route. AQI, when set, skips the live lookup.
type Waypoint struct {
	Lat          float64
	Lon          float64
	DwellMinutes float64
	AQI          *float64
}

// NamedRoute is a candidate route for CompareMany.
type NamedRoute struct {
	Name      string
	Waypoints []Waypoint
}

// PointExposure is the score of one waypoint.
type PointExposure struct {
	Lat          float64
	Lon          float64
	AQI          float64
	AQISource    string
	DwellMinutes float64
	Exposure     float64
}

// RouteExposure is the summed exposure of a named route.
type RouteExposure struct {
	Name          string
	TotalExposure float64
	Points        []PointExposure
}

// MultiComparison ranks routes from cleanest to dirtiest.
type MultiComparison struct {
	Routes         []RouteExposure
	Cleanest       string
	Recommendation string
}

// CompareMany scores every route as the sum of its waypoint exposures and sorts
// them ascending. Ties keep input order.
func (s *Service) CompareMany(ctx context.Context, routes []NamedRoute, activity string) (*MultiComparison, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	ranked := make([]RouteExposure, 0, len(routes))
	for i, r := range routes {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("route-%d", i+1)
		}

		re := RouteExposure{Name: name, Points: make([]PointExposure, 0, len(r.Waypoints))}
		var total float64
		for j, wp := range r.Waypoints {
			if routing.ValidateCoordinate(routing.Coordinate{Lat: wp.Lat, Lon: wp.Lon}) != nil {
				return nil, fmt.Errorf("%w: route %q waypoint %d", ErrInvalidCoordinates, name, j)
			}

			pe := PointExposure{Lat: wp.Lat, Lon: wp.Lon, DwellMinutes: wp.DwellMinutes}
			switch {
			case wp.AQI != nil:
				pe.AQI, pe.AQISource = *wp.AQI, AQISupplied
			default:
				aqi, fallback := s.lookupAQI(ctx, wp.Lat, wp.Lon)
				pe.AQI, pe.AQISource = aqi, AQILive
				if fallback {
					pe.AQISource = AQIFallback
				}
			}
			pe.Exposure = s.scorer.Score(pe.AQI, wp.DwellMinutes, activity)
			total += pe.Exposure
			re.Points = append(re.Points, pe)
		}
		re.TotalExposure = exposure.Round2(total)
		ranked = append(ranked, re)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalExposure < ranked[j].TotalExposure
	})

	best := ranked[0]
	return &MultiComparison{
		Routes:         ranked,
		Cleanest:       best.Name,
		Recommendation: fmt.Sprintf("%s has the lowest total exposure (%.2f).", best.Name, best.TotalExposure),
	}, nil
}
