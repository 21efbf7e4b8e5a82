package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formbricks/popchoice/internal/apperrors"
	"github.com/formbricks/popchoice/internal/models"
)

// Session errors. Both match apperrors.ErrConflict.
var (
	// ErrSubmissionInFlight is returned when the session is already running the pipeline.
	ErrSubmissionInFlight = apperrors.NewConflictError("a recommendation is already in progress")
	// ErrNotIdle is returned by Submit after a finished run; TryAgain must be called first.
	ErrNotIdle = apperrors.NewConflictError("session already has a result, try again to start over")
)

// Display strings shown by the front-ends.
const (
	TitleQuestions      = "PopChoice"
	TitleWorking        = "Thinking..."
	DescriptionWorking  = "Fetching your perfect movie..."
	TitleRecommendation = "Your Movie Recommendation"
	TitleError          = "Something went wrong"

	MessageEmbeddingFailure      = "We couldn't understand your preferences right now. Please try again."
	MessageSearchFailure         = "We couldn't reach the movie database. Please try again."
	MessageRecommendationFailure = "We couldn't come up with a recommendation right now. Please try again."
	MessageUnexpectedFailure     = "Something went wrong on our side. Please try again."
	MessageCanceled              = "The request was canceled before a recommendation was ready."
	NoticeNoMatches              = "No matching movies found, so here is a general pick."
)

// Pipeline runs the recommendation steps for a session.
type Pipeline interface {
	Run(ctx context.Context, prefs models.Preferences, progress ProgressFunc) (Outcome, error)
}

// Session is one user's view state: the answers, where the pipeline is, and the result.
// It is safe for concurrent use; at most one submission runs at a time.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	pipeline Pipeline
	logger   *slog.Logger
	now      func() time.Time

	state          models.SessionState
	prefs          models.Preferences
	recommendation string
	message        string
	noMatches      bool
	createdAt      time.Time
	updatedAt      time.Time
}

// NewSession creates an idle session. Nothing runs until Submit.
func NewSession(id uuid.UUID, pipeline Pipeline, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now().UTC()

	return &Session{
		id:        id,
		pipeline:  pipeline,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		state:     models.SessionStateIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Submit runs the pipeline for prefs and returns the final view (done or error).
// Pipeline failures are reported through the view, not the returned error; the error is
// ErrSubmissionInFlight or ErrNotIdle when the session cannot accept a submission.
func (s *Session) Submit(ctx context.Context, prefs models.Preferences) (models.SessionView, error) {
	s.mu.Lock()
	switch {
	case s.state.IsWorking():
		s.mu.Unlock()

		return s.Snapshot(), ErrSubmissionInFlight
	case s.state != models.SessionStateIdle:
		s.mu.Unlock()

		return s.Snapshot(), ErrNotIdle
	}

	s.prefs = prefs
	s.setStateLocked(models.SessionStateEmbedding)
	s.mu.Unlock()

	outcome, err := s.pipeline.Run(ctx, prefs, s.advance)

	s.mu.Lock()
	switch {
	case err != nil && ctx.Err() != nil:
		s.message = MessageCanceled
		s.setStateLocked(models.SessionStateError)
		s.logger.InfoContext(ctx, "session: submission canceled", "session_id", s.id, "cause", ctx.Err())
	case err != nil:
		s.message = failureMessage(err)
		s.setStateLocked(models.SessionStateError)
		s.logger.WarnContext(ctx, "session: pipeline failed", "session_id", s.id, "state", s.state, "error", err)
	default:
		s.recommendation = outcome.Recommendation
		s.noMatches = outcome.NoMatches
		if outcome.NoMatches {
			s.message = NoticeNoMatches
		}

		s.setStateLocked(models.SessionStateDone)
	}
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// advance moves between working states as the pipeline reports progress.
func (s *Session) advance(state models.SessionState) {
	if !state.IsWorking() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsWorking() {
		s.setStateLocked(state)
	}
}

// TryAgain clears answers and results and returns to idle. Calling it on an idle session is a no-op.
func (s *Session) TryAgain() (models.SessionView, error) {
	s.mu.Lock()
	if s.state.IsWorking() {
		s.mu.Unlock()

		return s.Snapshot(), ErrSubmissionInFlight
	}

	if s.state != models.SessionStateIdle {
		s.prefs = models.Preferences{}
		s.recommendation = ""
		s.message = ""
		s.noMatches = false
		s.setStateLocked(models.SessionStateIdle)
	}
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// State returns the current state.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Snapshot returns a copy of the session for display.
func (s *Session) Snapshot() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := models.SessionView{
		ID:             s.id,
		State:          s.state,
		View:           models.ViewQuestions,
		Preferences:    s.prefs,
		Title:          TitleQuestions,
		Recommendation: s.recommendation,
		Message:        s.message,
		NoMatches:      s.noMatches,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}

	switch {
	case s.state.IsWorking():
		view.Title = TitleWorking
		view.Message = DescriptionWorking
	case s.state == models.SessionStateDone:
		view.View = models.ViewOutput
		view.Title = TitleRecommendation
	case s.state == models.SessionStateError:
		view.View = models.ViewOutput
		view.Title = TitleError
	}

	return view
}

func (s *Session) setStateLocked(state models.SessionState) {
	s.state = state
	s.updatedAt = s.now()
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmbeddingFailure):
		return MessageEmbeddingFailure
	case errors.Is(err, ErrSearchFailure):
		return MessageSearchFailure
	case errors.Is(err, ErrRecommendationFailure):
		return MessageRecommendationFailure
	default:
		return MessageUnexpectedFailure
	}
}
