package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tunables is the single table of fallback constants and scoring knobs used across the
// service. Every call site reads its default from here.
type Tunables struct {
	DefaultAQIFallback    float64 `yaml:"default_aqi_fallback"`
	UnknownActivityFactor float64 `yaml:"unknown_activity_factor"`
	DetourOffsetDegrees   float64 `yaml:"detour_offset_degrees"`
	CleanAQIDiscount      float64 `yaml:"clean_aqi_discount"`
	DetourTimeFactor      float64 `yaml:"detour_time_factor"`
	StraightLineMinutes   float64 `yaml:"straight_line_minutes"`
	HeatmapStepDegrees    float64 `yaml:"heatmap_step_degrees"`
	HeatmapRadiusSteps    int     `yaml:"heatmap_radius_steps"`
	ScheduleHours         []int   `yaml:"schedule_hours"`
	SafeAQIThreshold      float64 `yaml:"safe_aqi_threshold"`
	LagAQIFactor          float64 `yaml:"lag_aqi_factor"`
}

// DefaultTunables returns the production defaults.
func DefaultTunables() Tunables {
	return Tunables{
		DefaultAQIFallback:    50.0,
		UnknownActivityFactor: 1.0,
		DetourOffsetDegrees:   0.004,
		CleanAQIDiscount:      0.55,
		DetourTimeFactor:      1.2,
		StraightLineMinutes:   10.0,
		HeatmapStepDegrees:    0.015,
		HeatmapRadiusSteps:    3,
		ScheduleHours:         []int{6, 9, 13, 18, 21},
		SafeAQIThreshold:      100,
		LagAQIFactor:          0.95,
	}
}

// LoadTunablesFile overlays the YAML document at path on top of base.
// Keys missing from the file keep their value from base.
func LoadTunablesFile(path string, base Tunables) (Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading tunables file: %w", err)
	}

	t := base
	if err := yaml.Unmarshal(data, &t); err != nil {
		return base, fmt.Errorf("parsing tunables file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return base, err
	}
	return t, nil
}

// Validate rejects values that would make scoring or routing meaningless. Services
// treat a zero value as "use the built-in default", so zero is rejected here for
// every key they read that way.
func (t Tunables) Validate() error {
	switch {
	case t.DefaultAQIFallback <= 0:
		return fmt.Errorf("default_aqi_fallback must be > 0, got %v", t.DefaultAQIFallback)
	case t.DetourOffsetDegrees <= 0:
		return fmt.Errorf("detour_offset_degrees must be > 0, got %v", t.DetourOffsetDegrees)
	case t.StraightLineMinutes <= 0:
		return fmt.Errorf("straight_line_minutes must be > 0, got %v", t.StraightLineMinutes)
	case t.SafeAQIThreshold <= 0:
		return fmt.Errorf("safe_aqi_threshold must be > 0, got %v", t.SafeAQIThreshold)
	case t.LagAQIFactor <= 0:
		return fmt.Errorf("lag_aqi_factor must be > 0, got %v", t.LagAQIFactor)
	case len(t.ScheduleHours) == 0:
		return fmt.Errorf("schedule_hours must not be empty")
	case t.CleanAQIDiscount <= 0 || t.CleanAQIDiscount > 1:
		return fmt.Errorf("clean_aqi_discount must be in (0, 1], got %v", t.CleanAQIDiscount)
	case t.DetourTimeFactor < 1:
		return fmt.Errorf("detour_time_factor must be >= 1, got %v", t.DetourTimeFactor)
	case t.HeatmapRadiusSteps < 0:
		return fmt.Errorf("heatmap_radius_steps must be >= 0, got %d", t.HeatmapRadiusSteps)
	case t.HeatmapStepDegrees <= 0:
		return fmt.Errorf("heatmap_step_degrees must be > 0, got %v", t.HeatmapStepDegrees)
	}
	for _, h := range t.ScheduleHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("schedule_hours contains invalid hour %d", h)
		}
	}
	return nil
}
