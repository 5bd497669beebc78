package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoscout/internal/breaker"
)

func newBreaker() *breaker.Breaker {
	return breaker.New("search", 3, 30*time.Second)
}

func TestSearch(t *testing.T) {
	var gotBody map[string]string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		gotKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(searchResponse{Organic: []Result{
			{Title: "t1", Link: "https://reddit.com/r/a/1", Snippet: "s1", Position: 1},
			{Title: "t2", Link: "https://reddit.com/r/a/2", Snippet: "s2", Position: 2},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", newBreaker(), nil)
	results, err := c.Search(context.Background(), "trail shoes site:reddit.com", "day")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "t1", results[0].Title)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "trail shoes site:reddit.com", gotBody["q"])
	assert.Equal(t, "qdr:d", gotBody["tbs"])
}

func TestSearchNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", newBreaker(), nil)
	_, err := c.Search(context.Background(), "q", "week")
	assert.Error(t, err)
}

func TestSearchTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", newBreaker(), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Search(ctx, "q", "week")
		require.Error(t, err)
		require.NotErrorIs(t, err, breaker.ErrOpen)
	}
	_, err := c.Search(ctx, "q", "week")
	assert.ErrorIs(t, err, breaker.ErrOpen)
}

func TestWindowParam(t *testing.T) {
	assert.Equal(t, "qdr:d", windowParam("day"))
	assert.Equal(t, "qdr:w", windowParam("week"))
	assert.Equal(t, "qdr:m", windowParam("month"))
	assert.Equal(t, "qdr:w", windowParam(""))
}
