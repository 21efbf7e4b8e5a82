package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/popchoice/internal/models"
)

func newRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/recommendations", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}

	return r
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest(`{"favorite":"Inception","newOrClassic":"new","tone":"funny"}`, "application/json"), &prefs)
		require.NoError(t, err)
		assert.Equal(t, models.Preferences{Favorite: "Inception", Recency: "new", Tone: "funny"}, prefs)
	})

	t.Run("json with charset", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest(`{"tone":"dark"}`, "application/json; charset=utf-8"), &prefs)
		require.NoError(t, err)
		assert.Equal(t, "dark", prefs.Tone)
	})

	t.Run("missing content type reads json", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest(`{"favorite":"Heat"}`, ""), &prefs)
		require.NoError(t, err)
		assert.Equal(t, "Heat", prefs.Favorite)
	})

	t.Run("empty body is empty preferences", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest("", "application/json"), &prefs)
		require.NoError(t, err)
		assert.True(t, prefs.IsZero())
	})

	t.Run("form body", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest("favorite=Inception&newOrClassic=new&tone=funny", "application/x-www-form-urlencoded"), &prefs)
		require.NoError(t, err)
		assert.Equal(t, models.Preferences{Favorite: "Inception", Recency: "new", Tone: "funny"}, prefs)
	})

	t.Run("unknown json field", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest(`{"genre":"horror"}`, "application/json"), &prefs)
		require.Error(t, err)
		assert.False(t, IsValidationError(err))
	})

	t.Run("unsupported media type", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest("favorite", "text/plain"), &prefs)
		require.ErrorIs(t, err, ErrUnsupportedMediaType)
	})

	t.Run("too long", func(t *testing.T) {
		var prefs models.Preferences

		body := `{"favorite":"` + strings.Repeat("a", 501) + `"}`
		err := DecodeAndValidate(newRequest(body, "application/json"), &prefs)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "favorite must be at most 500 characters")
	})

	t.Run("null byte", func(t *testing.T) {
		var prefs models.Preferences

		err := DecodeAndValidate(newRequest(`{"tone":"fun\u0000ny"}`, "application/json"), &prefs)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		details := GetValidationErrorDetails(err)
		require.Len(t, details, 1)
		assert.Equal(t, "tone", details[0].Location)
	})
}

func TestRespondValidationError(t *testing.T) {
	err := ValidateStruct(models.Preferences{Recency: "new\x00"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	RespondValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"location":"newOrClassic"`)
}
