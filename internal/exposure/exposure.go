// Package exposure computes personal pollution load for an activity in a given air quality.
package exposure

import (
	"math"
	"sort"
	"strings"
)

// DefaultActivity is used when a caller does not name an activity.
const DefaultActivity = "walking"

// UnknownActivityFactor applies to activity names missing from the table.
const UnknownActivityFactor = 1.0

// FormulaDescription is reported to clients alongside computed scores.
const FormulaDescription = "AQI * Time(hrs) * Activity_Factor"

// Breathing-rate multipliers relative to walking.
var activityFactors = map[string]float64{
	"resting":        0.7,
	"walking":        1.0,
	"cycling":        2.0,
	"running":        2.5,
	"heavy_exercise": 3.0,
}

// Activity is one entry of the factor table.
type Activity struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// Scorer computes exposure scores. The zero value uses UnknownActivityFactor.
type Scorer struct {
	// UnknownFactor overrides the factor for unrecognised activities when non-zero.
	UnknownFactor float64
}

// Factor returns the multiplier for activity, matched case-insensitively.
func (s Scorer) Factor(activity string) float64 {
	if f, ok := activityFactors[strings.ToLower(strings.TrimSpace(activity))]; ok {
		return f
	}
	if s.UnknownFactor != 0 {
		return s.UnknownFactor
	}
	return UnknownActivityFactor
}

// Score returns aqi * hours * factor rounded to 2 decimals. Zero and negative durations
// are not rejected; they yield a non-positive score.
func (s Scorer) Score(aqi, durationMinutes float64, activity string) float64 {
	return Round2(aqi * (durationMinutes / 60) * s.Factor(activity))
}

// Factor returns the multiplier for activity using the default table.
func Factor(activity string) float64 {
	return Scorer{}.Factor(activity)
}

// Score computes an exposure score using the default table.
func Score(aqi, durationMinutes float64, activity string) float64 {
	return Scorer{}.Score(aqi, durationMinutes, activity)
}

// Activities lists the known activities ordered by factor.
func Activities() []Activity {
	out := make([]Activity, 0, len(activityFactors))
	for name, f := range activityFactors {
		out = append(out, Activity{Name: name, Factor: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Factor < out[j].Factor })
	return out
}

// Round2 rounds v to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
