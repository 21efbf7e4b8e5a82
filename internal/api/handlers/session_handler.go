package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/formbricks/popchoice/internal/api/response"
	"github.com/formbricks/popchoice/internal/api/validation"
	"github.com/formbricks/popchoice/internal/apperrors"
	"github.com/formbricks/popchoice/internal/models"
	"github.com/formbricks/popchoice/internal/service"
)

// SessionService holds recommendation sessions for the HTTP boundary.
type SessionService interface {
	Create() (*service.Session, error)
	Get(id uuid.UUID) (*service.Session, error)
	Recommend(ctx context.Context, prefs models.Preferences) (models.SessionView, error)
}

// SessionHandler serves the questions form and the recommendation view.
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create()
	if err != nil {
		slog.ErrorContext(r.Context(), "create session failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusCreated, session.Snapshot())
}

// Get handles GET /v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	response.RespondJSON(w, http.StatusOK, session.Snapshot())
}

// Submit handles POST /v1/sessions/{id}/submit. The pipeline runs within the request; pipeline
// failures come back as a 200 with the session in the error state.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var prefs models.Preferences
	if !decodePreferences(w, r, &prefs) {
		return
	}

	view, err := session.Submit(r.Context(), prefs)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			response.RespondConflict(w, err.Error())

			return
		}

		slog.ErrorContext(r.Context(), "submit failed", "session_id", session.ID(), "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, view)
}

// Reset handles POST /v1/sessions/{id}/reset (Try Again).
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	view, err := session.TryAgain()
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			response.RespondConflict(w, err.Error())

			return
		}

		slog.ErrorContext(r.Context(), "reset failed", "session_id", session.ID(), "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, view)
}

// Recommend handles POST /v1/recommendations: one submission without a stored session.
func (h *SessionHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if !decodePreferences(w, r, &prefs) {
		return
	}

	view, err := h.sessions.Recommend(r.Context(), prefs)
	if err != nil {
		slog.ErrorContext(r.Context(), "one-shot recommendation failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid session ID format")

		return nil, false
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondNotFound(w, "Session not found or expired")

			return nil, false
		}

		response.RespondInternalServerError(w, "An unexpected error occurred")

		return nil, false
	}

	return session, true
}

func decodePreferences(w http.ResponseWriter, r *http.Request, prefs *models.Preferences) bool {
	err := validation.DecodeAndValidate(r, prefs)
	switch {
	case err == nil:
		return true
	case errors.Is(err, validation.ErrUnsupportedMediaType):
		response.RespondUnsupportedMediaType(w, err.Error())
	case validation.IsValidationError(err):
		validation.RespondValidationError(w, err)
	default:
		response.RespondBadRequest(w, "Invalid request body")
	}

	return false
}
