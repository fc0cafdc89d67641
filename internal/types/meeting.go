package types

// Person is a meeting participant as submitted by the caller.
type Person struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Coordinate is a WGS84 point. Approximate marks synthetic fallback values so
// callers can tell degraded geocoding results from genuine ones.
type Coordinate struct {
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	Approximate bool    `json:"approximate,omitempty"`
}

// LocatedPerson is a participant whose address has been resolved to a point.
type LocatedPerson struct {
	ID         string     `json:"id,omitempty"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

type PreferenceType string

const (
	PreferenceBrand        PreferenceType = "brand"
	PreferenceAmenity      PreferenceType = "amenity"
	PreferenceLocationType PreferenceType = "location_type"
	PreferenceDistance     PreferenceType = "distance"
	PreferenceTransport    PreferenceType = "transportation"
	PreferenceWeather      PreferenceType = "weather"
)

// ParsedPreference is one typed, weighted preference extracted from the
// user's free-text description. Importance is bounded to [1,10].
type ParsedPreference struct {
	Type       PreferenceType `json:"type"`
	Value      string         `json:"value"`
	Importance int            `json:"importance"`
}

type TransportMode string

const (
	ModeTransit   TransportMode = "transit"
	ModeWalking   TransportMode = "walking"
	ModeBicycling TransportMode = "bicycling"
	ModeDriving   TransportMode = "driving"
)

// TransportPreference overrides the default transit mode for one person.
type TransportPreference struct {
	PersonID string        `json:"personId"`
	Mode     TransportMode `json:"mode"`
}

// CandidatePOI is a point of interest returned by the provider search,
// possibly enriched with detail-lookup fields. Recomputed per request.
type CandidatePOI struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Location     Coordinate `json:"location"`
	Type         string     `json:"type,omitempty"`
	Tel          string     `json:"tel,omitempty"`
	Website      string     `json:"website,omitempty"`
	BusinessArea string     `json:"business_area,omitempty"`
}

// RouteResult is a normalized route between two points. Duration is in
// minutes, Distance in meters, both rounded.
type RouteResult struct {
	Duration int           `json:"duration"`
	Distance int           `json:"distance"`
	Steps    []string      `json:"steps"`
	Mode     TransportMode `json:"mode"`
}

// ResultPerson describes one participant's journey to a recommended spot.
type ResultPerson struct {
	Name          string        `json:"name"`
	TravelTime    string        `json:"travelTime"`
	TransitInfo   string        `json:"transitInfo"`
	TransportMode TransportMode `json:"transportMode"`
}

// PersonTravel names a participant together with their travel time, used for
// the closest/furthest summary on a recommendation.
type PersonTravel struct {
	Name       string `json:"name"`
	TravelTime string `json:"travelTime"`
}

// Recommendation is one ranked meeting-point suggestion.
type Recommendation struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Address              string         `json:"address"`
	MatchScore           float64        `json:"matchScore"`
	Rationale            string         `json:"rationale"`
	MatchedPreferences   []string       `json:"matchedPreferences"`
	People               []ResultPerson `json:"people"`
	AverageTravelTime    string         `json:"averageTravelTime"`
	FurthestPerson       PersonTravel   `json:"furthestPerson"`
	ClosestPerson        PersonTravel   `json:"closestPerson"`
	Type                 string         `json:"type,omitempty"`
	Tel                  string         `json:"tel,omitempty"`
	Website              string         `json:"website,omitempty"`
	BusinessArea         string         `json:"business_area,omitempty"`
	StraightLineDistance string         `json:"straightLineDistance,omitempty"`
}

// WeatherForecast is a single day of the provider forecast.
type WeatherForecast struct {
	Date         string `json:"date"`
	DayWeather   string `json:"dayWeather"`
	NightWeather string `json:"nightWeather"`
	DayTemp      string `json:"dayTemp"`
	NightTemp    string `json:"nightTemp"`
}

// WeatherData is the forecast for one city, shared across all candidates of
// a single find call.
type WeatherData struct {
	City      string            `json:"city"`
	Forecasts []WeatherForecast `json:"forecasts"`
}
