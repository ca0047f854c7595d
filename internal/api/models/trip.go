package models

// PlanTripRequest is the request body for planning a trip.
type PlanTripRequest struct {
	Country            string `json:"country"`
	Source             string `json:"source"`
	Destination        string `json:"destination"`
	UseCurrentLocation bool   `json:"useCurrentLocation,omitempty"`
}

// SelectRouteRequest is the request body for switching the active route.
type SelectRouteRequest struct {
	ID int `json:"id"`
}

// NearbySearchRequest is the request body for a nearby category search.
type NearbySearchRequest struct {
	Category string `json:"category"`
}

// RouteView is one scored route candidate.
type RouteView struct {
	ID              int     `json:"id"`
	Geometry        string  `json:"geometry"`
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	FirstManeuver   string  `json:"firstManeuver"`
	AQI             int     `json:"aqi"`
	PollutionScore  float64 `json:"pollutionScore"`
	TimeSavedPct    float64 `json:"timeSavedPct"`
	HealthSavedPct  float64 `json:"healthSavedPct"`
}

// ConditionsView is the weather/air-quality snapshot for the trip start.
type ConditionsView struct {
	TemperatureC *float64 `json:"temperatureC,omitempty"`
	AQI          *int     `json:"aqi,omitempty"`
}

// HUDView is the display summary for the active route.
type HUDView struct {
	DistanceMeters  float64        `json:"distanceMeters"`
	DurationSeconds float64        `json:"durationSeconds"`
	FirstManeuver   string         `json:"firstManeuver"`
	Conditions      ConditionsView `json:"conditions"`
}

// TripResponse is the full planning result.
type TripResponse struct {
	TripID      string      `json:"tripId,omitempty"`
	Country     string      `json:"country"`
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	ActiveID    int         `json:"activeRouteId"`
	Routes      []RouteView `json:"routes"`
	HUD         HUDView     `json:"hud"`
}

// PlaceView is one nearby-search result.
type PlaceView struct {
	Label    string `json:"label"`
	Position Point  `json:"position"`
}

// NearbySearchResponse lists nearby places.
type NearbySearchResponse struct {
	Places []PlaceView `json:"places"`
}

// TrackedPositionView is the latest known device position.
type TrackedPositionView struct {
	Position Point     `json:"position"`
	Heading  *float64  `json:"heading,omitempty"`
	At       Timestamp `json:"at"`
	Follow   bool      `json:"follow"`
	Running  bool      `json:"running"`
}

// FollowRequest toggles camera follow mode.
type FollowRequest struct {
	Follow bool `json:"follow"`
}

// PositionUpdateRequest is one device position reading pushed by the
// presentation chrome.
type PositionUpdateRequest struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Heading *float64 `json:"heading,omitempty"`
}
