// Package advisory maps AQI readings to health bands and the advice shown to users.
package advisory

// Level is a health severity band.
type Level string

const (
	LevelGood          Level = "Good"
	LevelModerate      Level = "Moderate"
	LevelUnhealthy     Level = "Unhealthy"
	LevelVeryUnhealthy Level = "Very Unhealthy"
	LevelHazardous     Level = "Hazardous"
)

// Advice is the band for an AQI value and the sentence clients display for it.
type Advice struct {
	Level  Level  `json:"level"`
	Advice string `json:"advice"`
}

// Band is one row of the advisory table. MaxAQI is inclusive; the last band has no upper bound.
type Band struct {
	Level  Level   `json:"level"`
	MinAQI float64 `json:"min_aqi"`
	MaxAQI float64 `json:"max_aqi,omitempty"`
	Open   bool    `json:"open_ended,omitempty"`
	Advice string  `json:"advice"`
}

// The advice strings are displayed verbatim by clients.
var bands = []Band{
	{Level: LevelGood, MinAQI: 0, MaxAQI: 50, Advice: "Air is fresh. Great for a run!"},
	{Level: LevelModerate, MinAQI: 50, MaxAQI: 100, Advice: "Sensitive people should limit outdoor time."},
	{Level: LevelUnhealthy, MinAQI: 100, MaxAQI: 150, Advice: "Wear a mask if you have asthma."},
	{Level: LevelVeryUnhealthy, MinAQI: 150, MaxAQI: 200, Advice: "Limit time outdoors. Wear an N95 mask if you must go out."},
	{Level: LevelHazardous, MinAQI: 200, Open: true, Advice: "Avoid outdoors. Use an air purifier."},
}

// Advise returns the health band for aqi. Bands are checked in ascending order and the
// first one whose upper bound is >= aqi wins.
func Advise(aqi float64) Advice {
	for _, b := range bands {
		if b.Open || aqi <= b.MaxAQI {
			return Advice{Level: b.Level, Advice: b.Advice}
		}
	}
	last := bands[len(bands)-1]
	return Advice{Level: last.Level, Advice: last.Advice}
}

// Bands returns a copy of the advisory table.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}
