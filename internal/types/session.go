package types

import "time"

type SessionStatus string

const (
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
)

// Session tracks one meeting-point request from submission to its terminal
// result. Created in processing state, moved exactly once to completed or
// error by the background worker.
type Session struct {
	ID                   string                `json:"id"`
	People               []Person              `json:"people"`
	Preferences          []ParsedPreference    `json:"preferences"`
	TransportPreferences []TransportPreference `json:"transportPreferences,omitempty"`
	Status               SessionStatus         `json:"status"`
	Recommendations      []Recommendation      `json:"recommendations,omitempty"`
	Error                string                `json:"error,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	CompletedAt          *time.Time            `json:"completedAt,omitempty"`
}

// ResultsResponse is the polling payload for a session. Status is only set
// while processing or on failure; its absence signals completion.
type ResultsResponse struct {
	Status          string           `json:"status,omitempty"`
	Error           string           `json:"error,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}
