// Package worker runs bounded fan-out work and the background prediction jobs.
package worker

import (
	"time"
)

// Target is a named area whose points are swept.
type Target struct {
	Name string

	// Points are the sample coordinates, usually monitoring hotspots.
	Points []Point

	// Priority orders targets; lower runs first.
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// SweepConfig holds configuration for the prediction sweep.
type SweepConfig struct {
	// Targets defaults to DefaultTargets.
	Targets []Target

	// Concurrency is the number of predictions in flight (default: 3).
	Concurrency int

	// Timeout bounds each point (default: 30 seconds).
	Timeout time.Duration

	// Hours are the forecast hours predicted per point. Empty means the current hour only.
	Hours []int
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Targets:     DefaultTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultTargets covers the Delhi NCR hotspots.
func DefaultTargets() []Target {
	return []Target{
		{
			Name:     "New Delhi",
			Priority: 1,
			Points: []Point{
				{Lat: 28.6139, Lon: 77.2090}, // Connaught Place
				{Lat: 28.6315, Lon: 77.2167}, // ITO
				{Lat: 28.5672, Lon: 77.2100}, // AIIMS
			},
		},
		{
			Name:     "Anand Vihar",
			Priority: 1,
			Points: []Point{
				{Lat: 28.6469, Lon: 77.3160},
			},
		},
		{
			Name:     "Rohini",
			Priority: 2,
			Points: []Point{
				{Lat: 28.7041, Lon: 77.1025},
			},
		},
		{
			Name:     "Gurugram",
			Priority: 2,
			Points: []Point{
				{Lat: 28.4595, Lon: 77.0266},
			},
		},
		{
			Name:     "Noida",
			Priority: 2,
			Points: []Point{
				{Lat: 28.5355, Lon: 77.3910},
			},
		},
		{
			Name:     "Ghaziabad",
			Priority: 3,
			Points: []Point{
				{Lat: 28.6692, Lon: 77.4538},
			},
		},
		{
			Name:     "Faridabad",
			Priority: 3,
			Points: []Point{
				{Lat: 28.4089, Lon: 77.3178},
			},
		},
	}
}

// AllPoints returns all points from all targets in target order.
func (c SweepConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to sweep.
func (c SweepConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
