package model

// EntityCandidate is an office returned by entity search.
type EntityCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OfficeListResponse is the backend envelope for /office.
type OfficeListResponse struct {
	Offices []EntityCandidate `json:"offices"`
}

// SearchState is the entity search view.
type SearchState struct {
	Query      string            `json:"query"`
	Candidates []EntityCandidate `json:"candidates"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
}

// HealthResponse is the backend /health payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// AuthStatus is the backend /auth/status payload.
type AuthStatus struct {
	LoggedIn bool `json:"loggedIn"`
}

// Server status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ServerStatus is the backend health as seen by the dashboard.
type ServerStatus struct {
	Status    string `json:"status"`
	Loading   bool   `json:"loading"`
	Timestamp string `json:"timestamp,omitempty"`
}
