// Package featureflags provides runtime toggles for degraded-mode operation.
package featureflags

import (
	"errors"
	"sort"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableLiveAQI skips the WAQI feed; callers fall back to the default AQI.
	FlagDisableLiveAQI = "disable_live_aqi"

	// FlagDisableDetourRouting treats the cleaner detour route as unavailable.
	FlagDisableDetourRouting = "disable_detour_routing"

	// FlagForceModelFallback returns the sentinel AQI without invoking the model.
	FlagForceModelFallback = "force_model_fallback"

	// FlagLiveLagFeature feeds live AQI x lag factor into AQI_lag_24h instead of the constant.
	FlagLiveLagFeature = "live_lag_feature"

	// FlagRecordPredictions sends each prediction to the configured recorder.
	FlagRecordPredictions = "record_predictions"
)

var (
	// ErrUnknownFlag is returned when an update names a key that is not defined.
	ErrUnknownFlag = errors.New("unknown feature flag")
	// ErrInvalidFlagValue is returned when an update value is not a boolean.
	ErrInvalidFlagValue = errors.New("feature flag value must be a boolean")
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag value as a boolean, or defaultValue when the flag is nil
// or holds something else.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// Float64Value returns the flag value as a float64, or defaultValue.
func (f *Flag) Float64Value(defaultValue float64) float64 {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// DefaultFlags returns the flags with their shipped values. recordPredictions is on
// only when a recorder is configured.
func DefaultFlags(recordPredictions bool) map[string]*Flag {
	now := time.Now()
	values := map[string]bool{
		FlagDisableLiveAQI:       false,
		FlagDisableDetourRouting: false,
		FlagForceModelFallback:   false,
		FlagLiveLagFeature:       false,
		FlagRecordPredictions:    recordPredictions,
	}

	flags := make(map[string]*Flag, len(values))
	for k, v := range values {
		flags[k] = &Flag{Key: k, Value: v, UpdatedAt: now}
	}
	return flags
}

// SortedList flattens a flag map into a list ordered by key.
func SortedList(flags map[string]*Flag) FlagList {
	items := make([]Flag, 0, len(flags))
	for _, f := range flags {
		if f != nil {
			items = append(items, *f)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return FlagList{Items: items}
}
