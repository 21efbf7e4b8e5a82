package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is a recommendation session's position in the pipeline.
type SessionState string

// Session states. Embedding, Searching and Recommending are the working states.
const (
	SessionStateIdle         SessionState = "idle"
	SessionStateEmbedding    SessionState = "embedding"
	SessionStateSearching    SessionState = "searching"
	SessionStateRecommending SessionState = "recommending"
	SessionStateDone         SessionState = "done"
	SessionStateError        SessionState = "error"
)

// IsWorking reports whether an external call is outstanding in this state.
func (s SessionState) IsWorking() bool {
	switch s {
	case SessionStateEmbedding, SessionStateSearching, SessionStateRecommending:
		return true
	default:
		return false
	}
}

// View is which screen the display boundary should show.
type View string

// Views.
const (
	ViewQuestions View = "questions"
	ViewOutput    View = "output"
)

// SessionView is an immutable snapshot of a session handed to the display boundary.
type SessionView struct {
	ID             uuid.UUID    `json:"id"`
	State          SessionState `json:"state"`
	View           View         `json:"view"`
	Preferences    Preferences  `json:"preferences"`
	Title          string       `json:"title"`
	Recommendation string       `json:"recommendation,omitempty"`
	Message        string       `json:"message,omitempty"`
	NoMatches      bool         `json:"noMatches"` //nolint:tagliatelle // API contract camelCase
	CreatedAt      time.Time    `json:"createdAt"` //nolint:tagliatelle // API contract camelCase
	UpdatedAt      time.Time    `json:"updatedAt"` //nolint:tagliatelle // API contract camelCase
}
