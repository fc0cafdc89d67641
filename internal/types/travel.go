package types

// TravelPlan is a generated itinerary document together with the parsed
// preferences it was built from.
type TravelPlan struct {
	HTML          string             `json:"html"`
	Destination   string             `json:"destination"`
	Preferences   []ParsedPreference `json:"preferences"`
	OriginalInput string             `json:"originalInput"`
}
