package models

// Activities lists the activity factor table.
type Activities struct {
	Default       string     `json:"default"`
	UnknownFactor float64    `json:"unknown_factor"`
	Formula       string     `json:"formula"`
	Items         []Activity `json:"items"`
}

// Activity is one row of the factor table.
type Activity struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// Bands lists the advisory table.
type Bands struct {
	Items []Band `json:"items"`
}

// Band is one advisory band. MaxAQI is nil for the open-ended top band.
type Band struct {
	Level  string   `json:"level"`
	MinAQI float64  `json:"min_aqi"`
	MaxAQI *float64 `json:"max_aqi"`
	Advice string   `json:"advice"`
}
