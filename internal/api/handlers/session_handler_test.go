package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/popchoice/internal/models"
	"github.com/formbricks/popchoice/internal/service"
)

type mockPipeline struct {
	runFunc func(ctx context.Context, prefs models.Preferences, progress service.ProgressFunc) (service.Outcome, error)
}

func (m *mockPipeline) Run(
	ctx context.Context, prefs models.Preferences, progress service.ProgressFunc,
) (service.Outcome, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, prefs, progress)
	}

	return service.Outcome{Query: prefs.Query(), Recommendation: "Watch Heat (1995)."}, nil
}

func newTestMux(pipeline service.Pipeline) (*http.ServeMux, *service.SessionStore) {
	store := service.NewSessionStore(service.SessionStoreParams{Pipeline: pipeline})
	h := NewSessionHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", h.Create)
	mux.HandleFunc("GET /v1/sessions/{id}", h.Get)
	mux.HandleFunc("POST /v1/sessions/{id}/submit", h.Submit)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", h.Reset)
	mux.HandleFunc("POST /v1/recommendations", h.Recommend)

	return mux, store
}

func do(t *testing.T, mux http.Handler, method, target, contentType, body string) (*httptest.ResponseRecorder, models.SessionView) {
	t.Helper()

	req := httptest.NewRequest(method, "http://test"+target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var view models.SessionView
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	}

	return rec, view
}

func TestSessionHandler_Create(t *testing.T) {
	mux, store := newTestMux(&mockPipeline{})

	rec, view := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.SessionStateIdle, view.State)
	assert.Equal(t, models.ViewQuestions, view.View)
	assert.Equal(t, service.TitleQuestions, view.Title)
	assert.Equal(t, 1, store.Len())
}

func TestSessionHandler_Get(t *testing.T) {
	mux, _ := newTestMux(&mockPipeline{})

	t.Run("invalid id returns 400", func(t *testing.T) {
		rec, _ := do(t, mux, http.MethodGet, "/v1/sessions/not-a-uuid", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		rec, _ := do(t, mux, http.MethodGet, "/v1/sessions/0190b2a4-7c1e-7b3a-9f2e-3c4d5e6f7a8b", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("existing session", func(t *testing.T) {
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, view := do(t, mux, http.MethodGet, "/v1/sessions/"+created.ID.String(), "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.ID, view.ID)
	})
}

func TestSessionHandler_Submit(t *testing.T) {
	t.Run("json body runs the pipeline", func(t *testing.T) {
		var got models.Preferences
		mux, _ := newTestMux(&mockPipeline{
			runFunc: func(_ context.Context, prefs models.Preferences, _ service.ProgressFunc) (service.Outcome, error) {
				got = prefs

				return service.Outcome{Recommendation: "Try Everything Everywhere All at Once."}, nil
			},
		})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, view := do(t, mux, http.MethodPost, "/v1/sessions/"+created.ID.String()+"/submit",
			"application/json", `{"favorite":"Inception","newOrClassic":"new","tone":"funny"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.Preferences{Favorite: "Inception", Recency: "new", Tone: "funny"}, got)
		assert.Equal(t, models.SessionStateDone, view.State)
		assert.Equal(t, models.ViewOutput, view.View)
		assert.Equal(t, service.TitleRecommendation, view.Title)
		assert.Equal(t, "Try Everything Everywhere All at Once.", view.Recommendation)
	})

	t.Run("form body is accepted", func(t *testing.T) {
		var got models.Preferences
		mux, _ := newTestMux(&mockPipeline{
			runFunc: func(_ context.Context, prefs models.Preferences, _ service.ProgressFunc) (service.Outcome, error) {
				got = prefs

				return service.Outcome{Recommendation: "Watch Heat (1995)."}, nil
			},
		})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, _ := do(t, mux, http.MethodPost, "/v1/sessions/"+created.ID.String()+"/submit",
			"application/x-www-form-urlencoded", "favorite=Heat&newOrClassic=classic&tone=serious")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.Preferences{Favorite: "Heat", Recency: "classic", Tone: "serious"}, got)
	})

	t.Run("pipeline failure is a 200 error view", func(t *testing.T) {
		mux, _ := newTestMux(&mockPipeline{
			runFunc: func(context.Context, models.Preferences, service.ProgressFunc) (service.Outcome, error) {
				return service.Outcome{}, errors.Join(service.ErrSearchFailure, errors.New("connection refused"))
			},
		})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, view := do(t, mux, http.MethodPost, "/v1/sessions/"+created.ID.String()+"/submit",
			"application/json", `{"favorite":"Heat"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.SessionStateError, view.State)
		assert.Equal(t, service.TitleError, view.Title)
		assert.Equal(t, service.MessageSearchFailure, view.Message)
	})

	t.Run("second submit without reset returns 409", func(t *testing.T) {
		mux, _ := newTestMux(&mockPipeline{})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")
		target := "/v1/sessions/" + created.ID.String() + "/submit"

		rec, _ := do(t, mux, http.MethodPost, target, "application/json", `{"favorite":"Heat"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, _ = do(t, mux, http.MethodPost, target, "application/json", `{"favorite":"Heat"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown field returns 400", func(t *testing.T) {
		mux, _ := newTestMux(&mockPipeline{})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, _ := do(t, mux, http.MethodPost, "/v1/sessions/"+created.ID.String()+"/submit",
			"application/json", `{"genre":"horror"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized answer fails validation", func(t *testing.T) {
		mux, _ := newTestMux(&mockPipeline{})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, _ := do(t, mux, http.MethodPost, "/v1/sessions/"+created.ID.String()+"/submit",
			"application/json", `{"favorite":"`+strings.Repeat("a", 501)+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "favorite")
	})

	t.Run("unsupported content type returns 415", func(t *testing.T) {
		mux, _ := newTestMux(&mockPipeline{})
		_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")

		rec, _ := do(t, mux, http.MethodPost, "/v1/sessions/"+created.ID.String()+"/submit",
			"text/plain", "Heat")
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestSessionHandler_Reset(t *testing.T) {
	mux, _ := newTestMux(&mockPipeline{})
	_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")
	base := "/v1/sessions/" + created.ID.String()

	_, done := do(t, mux, http.MethodPost, base+"/submit", "application/json", `{"favorite":"Heat"}`)
	require.Equal(t, models.SessionStateDone, done.State)

	rec, view := do(t, mux, http.MethodPost, base+"/reset", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SessionStateIdle, view.State)
	assert.Equal(t, models.Preferences{}, view.Preferences)
	assert.Empty(t, view.Recommendation)

	rec, view = do(t, mux, http.MethodPost, base+"/reset", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SessionStateIdle, view.State)

	rec, _ = do(t, mux, http.MethodPost, base+"/submit", "application/json", `{"favorite":"Alien"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionHandler_ConflictWhileWorking(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	mux, _ := newTestMux(&mockPipeline{runFunc: func(
		_ context.Context, prefs models.Preferences, progress service.ProgressFunc,
	) (service.Outcome, error) {
		progress(models.SessionStateRecommending)
		close(entered)
		<-release

		return service.Outcome{Query: prefs.Query(), Recommendation: "Watch Heat (1995)."}, nil
	}})
	_, created := do(t, mux, http.MethodPost, "/v1/sessions", "", "")
	base := "/v1/sessions/" + created.ID.String()

	finished := make(chan int)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "http://test"+base+"/submit", strings.NewReader(`{"favorite":"Heat"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		finished <- rec.Code
	}()

	<-entered

	rec, _ := do(t, mux, http.MethodPost, base+"/reset", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), service.ErrSubmissionInFlight.Error())

	rec, _ = do(t, mux, http.MethodPost, base+"/submit", "application/json", `{"favorite":"Alien"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-finished)
}

func TestSessionHandler_Recommend(t *testing.T) {
	mux, store := newTestMux(&mockPipeline{
		runFunc: func(context.Context, models.Preferences, service.ProgressFunc) (service.Outcome, error) {
			return service.Outcome{Recommendation: "Watch Heat (1995).", NoMatches: true}, nil
		},
	})

	rec, view := do(t, mux, http.MethodPost, "/v1/recommendations", "application/json", `{"tone":"gritty"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SessionStateDone, view.State)
	assert.True(t, view.NoMatches)
	assert.Equal(t, service.NoticeNoMatches, view.Message)
	assert.Equal(t, 0, store.Len())
}
