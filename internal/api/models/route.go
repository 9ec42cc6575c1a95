package models

// CompareRoutesRequest is the body of POST /compare-routes.
type CompareRoutesRequest struct {
	Origin      *LatLon `json:"origin"`
	Destination *LatLon `json:"destination"`
	Activity    string  `json:"activity"`
}

// CompareRoutesResponse is the fastest/cleanest pair.
type CompareRoutesResponse struct {
	Fastest        RouteVariant `json:"fastest"`
	Cleanest       RouteVariant `json:"cleanest"`
	Recommendation string       `json:"recommendation"`
}

// RouteVariant is one scored route option.
type RouteVariant struct {
	Path           []LatLon `json:"path"`
	Time           float64  `json:"time"`
	AQI            float64  `json:"aqi"`
	PollutionLoad  float64  `json:"pollution_load"`
	DistanceMeters float64  `json:"distance_meters"`
	Source         string   `json:"source"`
}

// MultiRouteRequest is the body of POST /compare-routes/multi.
type MultiRouteRequest struct {
	Activity string            `json:"activity"`
	Routes   []MultiRouteInput `json:"routes"`
}

// MultiRouteInput is a named candidate route.
type MultiRouteInput struct {
	Name      string          `json:"name"`
	Waypoints []WaypointInput `json:"waypoints"`
}

// WaypointInput is a stop with the time spent there.
type WaypointInput struct {
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	DwellMinutes float64  `json:"dwell_minutes"`
	AQI          *float64 `json:"aqi,omitempty"`
}

// MultiRouteResponse ranks routes from cleanest to dirtiest.
type MultiRouteResponse struct {
	Routes         []RouteExposure `json:"routes"`
	Cleanest       string          `json:"cleanest"`
	Recommendation string          `json:"recommendation"`
}

// RouteExposure is the summed exposure of one route.
type RouteExposure struct {
	Name          string          `json:"name"`
	TotalExposure float64         `json:"total_exposure"`
	Points        []PointExposure `json:"points"`
}

// PointExposure is the exposure at one waypoint.
type PointExposure struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	AQI          float64 `json:"aqi"`
	AQISource    string  `json:"aqi_source"`
	DwellMinutes float64 `json:"dwell_minutes"`
	Exposure     float64 `json:"exposure"`
}
