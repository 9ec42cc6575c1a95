package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/api/models"
)

func TestCompareRoutesRequest_ArrayCoordinates(t *testing.T) {
	var req models.CompareRoutesRequest
	err := json.Unmarshal([]byte(`{"origin":[28.6139,77.209],"destination":[28.7041,77.1025],"activity":"cycling"}`), &req)
	require.NoError(t, err)

	require.NotNil(t, req.Origin)
	assert.Equal(t, models.LatLon{28.6139, 77.209}, *req.Origin)
	assert.Equal(t, 77.1025, req.Destination[1])
	assert.Equal(t, "cycling", req.Activity)
}

func TestCompareRoutesRequest_MissingDestination(t *testing.T) {
	var req models.CompareRoutesRequest
	require.NoError(t, json.Unmarshal([]byte(`{"origin":[1,2]}`), &req))
	assert.Nil(t, req.Destination)
}

func TestHeatmap_PointTriples(t *testing.T) {
	body, err := json.Marshal(models.Heatmap{HeatmapPoints: [][3]float64{{28.6, 77.2, 151.5}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"heatmap_points":[[28.6,77.2,151.5]]}`, string(body))
}

func TestLiveData_OmitsEmptyFields(t *testing.T) {
	body, err := json.Marshal(models.LiveData{Status: "error", Message: "down"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"down"}`, string(body))
}

func TestBand_OpenEndedMax(t *testing.T) {
	body, err := json.Marshal(models.Band{Level: "Hazardous", MinAQI: 200, Advice: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"Hazardous","min_aqi":200,"max_aqi":null,"advice":"x"}`, string(body))
}
