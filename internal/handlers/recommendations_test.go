package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpenike/fitrecs/internal/lifecycle"
	"github.com/carpenike/fitrecs/internal/llm"
	"github.com/carpenike/fitrecs/internal/models"
)

func TestRecommendations_RequireAuth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doAs("", http.MethodGet, "/api/recommendations", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "You must be logged in", decode[errorBody](t, body).Error)
}

func TestRecommendations_EmptyView(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(http.MethodGet, "/api/recommendations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decode[lifecycle.View](t, body)
	assert.Empty(t, v.New)
	assert.Empty(t, v.Favorites)
	assert.Nil(t, v.Draft)
}

func TestRecommendations_GenerateReplacesNewList(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(http.MethodPost, "/api/recommendations/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	v := decode[lifecycle.View](t, body)
	require.Len(t, v.New, 3)
	assert.Equal(t, lifecycle.Ephemeral, v.New[0].Kind)

	e.provider.ToolArguments = validArguments(4)
	_, body = e.do(http.MethodPost, "/api/recommendations/generate", nil)
	assert.Len(t, decode[lifecycle.View](t, body).New, 4)

	// The session keeps the list between requests.
	_, body = e.do(http.MethodGet, "/api/recommendations", nil)
	assert.Len(t, decode[lifecycle.View](t, body).New, 4)
}

func TestRecommendations_GenerateFailureKeepsState(t *testing.T) {
	e := newTestEnv(t)

	_, body := e.do(http.MethodPost, "/api/recommendations/generate", nil)
	require.Len(t, decode[lifecycle.View](t, body).New, 3)

	e.provider.GenerateErr = &llm.APIError{Provider: "openai", StatusCode: http.StatusTooManyRequests}
	resp, body := e.do(http.MethodPost, "/api/recommendations/generate", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded. Please try again in a moment.", decode[errorBody](t, body).Error)

	_, body = e.do(http.MethodGet, "/api/recommendations", nil)
	assert.Len(t, decode[lifecycle.View](t, body).New, 3)
}

func TestRecommendations_StateIsPerUser(t *testing.T) {
	e := newTestEnv(t)
	_, err := models.UpsertProfile(e.db, "user-2", "bob", models.LevelBeginner, "")
	require.NoError(t, err)

	_, body := e.do(http.MethodPost, "/api/recommendations/generate", nil)
	require.Len(t, decode[lifecycle.View](t, body).New, 3)

	// Same cookie jar, different credential.
	_, body = e.doAs(signJWT(t, "user-2"), http.MethodGet, "/api/recommendations", nil)
	assert.Empty(t, decode[lifecycle.View](t, body).New)
}

func TestRecommendations_SaveAndRemove(t *testing.T) {
	e := newTestEnv(t)
	e.do(http.MethodPost, "/api/recommendations/generate", nil)

	resp, body := e.do(http.MethodPost, "/api/recommendations/saved", map[string]int{"index": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	favs := decode[favoritesResponse](t, body).Favorites
	require.Len(t, favs, 1)
	assert.Equal(t, lifecycle.Saved, favs[0].Kind)
	assert.Equal(t, "Plan B", favs[0].Title)
	assert.NotEmpty(t, favs[0].SavedID)

	// Saving the same content again yields a second row.
	_, body = e.do(http.MethodPost, "/api/recommendations/saved", map[string]int{"index": 1})
	assert.Len(t, decode[favoritesResponse](t, body).Favorites, 2)

	// A recommendation supplied in the body.
	rec := models.Recommendation{
		Title:      "Mobility",
		Difficulty: "beginner",
		Exercises:  models.ExerciseList{{Name: "Cat-cow", Sets: "2", Reps: "10"}},
	}
	resp, body = e.do(http.MethodPost, "/api/recommendations/saved", map[string]any{"recommendation": rec})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	favs = decode[favoritesResponse](t, body).Favorites
	require.Len(t, favs, 3)
	assert.Equal(t, "Mobility", favs[0].Title, "newest first")

	resp, body = e.do(http.MethodDelete, "/api/recommendations/saved/"+favs[0].SavedID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[favoritesResponse](t, body).Favorites, 2)

	resp, body = e.do(http.MethodDelete, "/api/recommendations/saved/"+favs[0].SavedID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Recommendation not found", decode[errorBody](t, body).Error)
}

func TestRecommendations_SaveValidation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"neither", map[string]any{}, "Provide exactly one of index or recommendation"},
		{"both", map[string]any{"index": 0, "recommendation": map[string]any{"title": "x", "difficulty": "beginner"}}, "Provide exactly one of index or recommendation"},
		{"negative index", map[string]any{"index": -1}, "Index must be at least 0"},
		{"missing title", map[string]any{"recommendation": map[string]any{"difficulty": "beginner"}}, "Title is required"},
		{"bad difficulty", map[string]any{"recommendation": map[string]any{"title": "x", "difficulty": "extreme"}}, "Difficulty must be one of: beginner intermediate advanced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(http.MethodPost, "/api/recommendations/saved", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, decode[errorBody](t, body).Error)
		})
	}

	resp, body := e.do(http.MethodPost, "/api/recommendations/saved", map[string]int{"index": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "no new list yet")
	assert.Equal(t, "No recommendation at that index", decode[errorBody](t, body).Error)
}

func TestRecommendations_CompletionFlow(t *testing.T) {
	e := newTestEnv(t)
	e.do(http.MethodPost, "/api/recommendations/generate", nil)
	_, body := e.do(http.MethodPost, "/api/recommendations/saved", map[string]int{"index": 0})
	saved := decode[favoritesResponse](t, body).Favorites[0]

	resp, body := e.do(http.MethodPost, "/api/recommendations/completion/submit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing open yet")

	resp, body = e.do(http.MethodPost, "/api/recommendations/saved/"+saved.SavedID+"/completion", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	d := decode[lifecycle.Draft](t, body)
	require.Len(t, d.Exercises, 3)
	assert.Equal(t, 0, d.Rating)

	// Positions 0 and 1 share a name but toggle independently.
	_, body = e.do(http.MethodPost, "/api/recommendations/completion/exercises/1/toggle", nil)
	d = decode[lifecycle.Draft](t, body)
	assert.False(t, d.Exercises[0].Done)
	assert.True(t, d.Exercises[1].Done)

	_, body = e.do(http.MethodPost, "/api/recommendations/completion/exercises/2/toggle", nil)
	_, body = e.do(http.MethodPost, "/api/recommendations/completion/exercises/2/toggle", nil)
	assert.False(t, decode[lifecycle.Draft](t, body).Exercises[2].Done, "double toggle restores")

	resp, _ = e.do(http.MethodPost, "/api/recommendations/completion/exercises/9/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.do(http.MethodPost, "/api/recommendations/completion/exercises/abc/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Rating is required before submit.
	resp, body = e.do(http.MethodPost, "/api/recommendations/completion/submit", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please provide a rating", decode[errorBody](t, body).Error)
	cs, err := models.ListCompletions(e.db, testUser)
	require.NoError(t, err)
	assert.Empty(t, cs)

	resp, body = e.do(http.MethodPatch, "/api/recommendations/completion", map[string]any{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Rating must be between 1 and 5", decode[errorBody](t, body).Error)

	resp, body = e.do(http.MethodPatch, "/api/recommendations/completion", map[string]any{"rating": 4, "notes": "tough"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	d = decode[lifecycle.Draft](t, body)
	assert.Equal(t, 4, d.Rating)
	assert.Equal(t, "tough", d.Notes)

	resp, body = e.do(http.MethodPost, "/api/recommendations/completion/submit", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	c := decode[completionResponse](t, body)
	assert.Equal(t, 4, c.Rating)
	assert.Equal(t, "Plan A", c.Title)
	require.NotNil(t, c.RecommendationID)
	assert.Equal(t, saved.SavedID, *c.RecommendationID)
	assert.Equal(t, models.CompletedExercises{{Position: 1, Name: "Squat"}}, c.Exercises)

	assert.Len(t, e.notifier.sent(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.CounterCompletions.WithLabelValues("4")))

	_, body = e.do(http.MethodGet, "/api/recommendations", nil)
	assert.Nil(t, decode[lifecycle.View](t, body).Draft, "draft cleared after submit")
}

func TestRecommendations_OpenUnknownCompletion(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(http.MethodPost, "/api/recommendations/saved/missing/completion", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(http.MethodPatch, "/api/recommendations/completion", map[string]any{"notes": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCompletions_ListAndOrphans(t *testing.T) {
	e := newTestEnv(t)
	saved, err := models.SaveRecommendation(e.db, testUser, models.Recommendation{Title: "Leg Day", Difficulty: "advanced"})
	require.NoError(t, err)
	_, err = models.CreateCompletion(e.db, testUser, saved.ID, 5, "great", nil)
	require.NoError(t, err)
	require.NoError(t, models.DeleteSavedRecommendation(e.db, testUser, saved.ID))

	resp, body := e.do(http.MethodGet, "/api/recommendations/completions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[map[string][]completionResponse](t, body)["completions"]
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown", got[0].Title)
	assert.Nil(t, got[0].RecommendationID)
	assert.Equal(t, 5, got[0].Rating)
	assert.Equal(t, models.CompletedExercises{}, got[0].Exercises)
}

func TestCompletions_Export(t *testing.T) {
	e := newTestEnv(t)
	saved, err := models.SaveRecommendation(e.db, testUser, models.Recommendation{Title: "Leg Day", Difficulty: "advanced"})
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := models.CreateCompletion(e.db, testUser, saved.ID, i, fmt.Sprintf("note %d", i),
			models.CompletedExercises{{Position: 0, Name: "Squat"}, {Position: 2, Name: "Lunge"}})
		require.NoError(t, err)
	}

	resp, body := e.do(http.MethodGet, "/api/recommendations/completions/export.xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "fitrecs-feedback.xlsx")
	assert.Equal(t, "PK", string(body[:2]), "xlsx is a zip archive")
}
