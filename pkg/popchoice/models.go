package popchoice

import "time"

// Preferences are the three answers of the questions form.
type Preferences struct {
	Favorite     string `json:"favorite"`
	NewOrClassic string `json:"newOrClassic"` //nolint:tagliatelle // API contract camelCase
	Tone         string `json:"tone"`
}

// Session is the server's view of one recommendation session.
type Session struct {
	ID             string      `json:"id"`
	State          string      `json:"state"`
	View           string      `json:"view"`
	Preferences    Preferences `json:"preferences"`
	Title          string      `json:"title"`
	Recommendation string      `json:"recommendation,omitempty"`
	Message        string      `json:"message,omitempty"`
	NoMatches      bool        `json:"noMatches"` //nolint:tagliatelle // API contract camelCase
	CreatedAt      time.Time   `json:"createdAt"` //nolint:tagliatelle // API contract camelCase
	UpdatedAt      time.Time   `json:"updatedAt"` //nolint:tagliatelle // API contract camelCase
}

// Session states reported by the server.
const (
	StateIdle  = "idle"
	StateDone  = "done"
	StateError = "error"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}
