package advisory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greennav/greennav/internal/advisory"
)

func TestAdvise_Bands(t *testing.T) {
	tests := []struct {
		aqi   float64
		level advisory.Level
	}{
		{-5, advisory.LevelGood},
		{0, advisory.LevelGood},
		{50, advisory.LevelGood},
		{50.01, advisory.LevelModerate},
		{100, advisory.LevelModerate},
		{100.5, advisory.LevelUnhealthy},
		{150, advisory.LevelUnhealthy},
		{151, advisory.LevelVeryUnhealthy},
		{200, advisory.LevelVeryUnhealthy},
		{200.01, advisory.LevelHazardous},
		{999, advisory.LevelHazardous},
	}

	for _, tt := range tests {
		got := advisory.Advise(tt.aqi)
		assert.Equal(t, tt.level, got.Level, "aqi=%v", tt.aqi)
		assert.NotEmpty(t, got.Advice)
	}
}

func TestAdvise_GoodForAllLowValues(t *testing.T) {
	for aqi := 0.0; aqi <= 50; aqi += 0.25 {
		assert.Equal(t, advisory.LevelGood, advisory.Advise(aqi).Level)
	}
}

func TestAdvise_VerbatimStrings(t *testing.T) {
	assert.Equal(t, "Air is fresh. Great for a run!", advisory.Advise(10).Advice)
	assert.Equal(t, "Sensitive people should limit outdoor time.", advisory.Advise(75).Advice)
	assert.Equal(t, "Wear a mask if you have asthma.", advisory.Advise(120).Advice)
	assert.Equal(t, "Avoid outdoors. Use an air purifier.", advisory.Advise(300).Advice)
}

func TestBands_ReturnsCopy(t *testing.T) {
	b := advisory.Bands()
	assert.Len(t, b, 5)
	b[0].Advice = "changed"
	assert.Equal(t, "Air is fresh. Great for a run!", advisory.Bands()[0].Advice)
}
