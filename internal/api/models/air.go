package models

// Welcome is the body of GET /.
type Welcome struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Documentation string `json:"documentation"`
}

// Liveness is the body of GET /health.
type Liveness struct {
	Status string `json:"status"`
}

// LiveData is the body of GET /test-live-data.
type LiveData struct {
	Status  string       `json:"status"`
	Data    *LiveReading `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
}

// LiveReading is a station reading.
type LiveReading struct {
	AQI  float64 `json:"aqi"`
	City string  `json:"city"`
}

// ErrorBody is the legacy always-200 error shape of GET /analyze-air.
type ErrorBody struct {
	Error string `json:"error"`
}

// AnalyzeAir is the body of GET /analyze-air.
type AnalyzeAir struct {
	Location           AnalyzeLocation    `json:"location"`
	AirQuality         AnalyzeAirQuality  `json:"air_quality"`
	PersonalizedImpact PersonalizedImpact `json:"personalized_impact"`
}

// AnalyzeLocation identifies the analysed point.
type AnalyzeLocation struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AnalyzeAirQuality is the live reading with its advisory.
type AnalyzeAirQuality struct {
	CurrentAQI     float64 `json:"current_aqi"`
	Status         string  `json:"status"`
	Recommendation string  `json:"recommendation"`
}

// PersonalizedImpact is the exposure score for the requested activity.
type PersonalizedImpact struct {
	EstimatedExposureScore float64 `json:"estimated_exposure_score"`
	ActivityContext        string  `json:"activity_context"`
	FormulaUsed            string  `json:"formula_used"`
}

// Prediction is the body of GET /predict.
type Prediction struct {
	Status   string   `json:"status"`
	MLResult MLResult `json:"ml_result"`
}

// MLResult is the predicted AQI with its advisory band.
type MLResult struct {
	PredictedAQI float64 `json:"predicted_aqi"`
	Category     string  `json:"category"`
	Guidance     string  `json:"guidance"`
	Model        string  `json:"model"`
	Fallback     bool    `json:"fallback"`
}

// Heatmap is the body of GET /heatmap-data. Each point is [lat, lon, aqi].
type Heatmap struct {
	HeatmapPoints [][3]float64 `json:"heatmap_points"`
}

// Schedule is the body of GET /scheduler-advice.
type Schedule struct {
	Schedule []ScheduleSlot `json:"schedule"`
}

// ScheduleSlot is the forecast for one probe hour.
type ScheduleSlot struct {
	Hour   string  `json:"hour"`
	AQI    float64 `json:"aqi"`
	Status string  `json:"status"`
	IsSafe bool    `json:"is_safe"`
}
