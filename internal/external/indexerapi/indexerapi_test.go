package indexerapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/apperr"
)

func TestTMDBClient_GetMovieDetails_ParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "testkey", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":550,"imdb_id":"tt0137523","title":"Fight Club","release_date":"1999-10-15","genres":[{"name":"Drama"}]}`))
	}))
	defer server.Close()

	c := NewTMDBClient("testkey")
	c.baseURL = server.URL

	details, err := c.GetMovieDetails(context.Background(), "550")

	require.NoError(t, err)
	assert.Equal(t, 550, details.TMDBID)
	assert.Equal(t, "tt0137523", details.IMDBID)
	assert.Equal(t, "Fight Club", details.Title)
	assert.Equal(t, []string{"Drama"}, details.Genres)
}

func TestTMDBClient_GetMovieDetails_NoAPIKeyReturnsConfigInvalid(t *testing.T) {
	c := NewTMDBClient("")
	_, err := c.GetMovieDetails(context.Background(), "550")
	assert.ErrorIs(t, err, apperr.ConfigInvalid)
}

func TestTVDBClient_GetShowDetails_AuthenticatesThenFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"token":"tok123"}}`))
		case "/series/81189/extended":
			assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"id":81189,"name":"Breaking Bad","firstAired":"2008-01-20","status":{"name":"Ended"},"genres":[{"name":"Drama"}]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewTVDBClient("testkey")
	c.baseURL = server.URL

	details, err := c.GetShowDetails(context.Background(), "81189")

	require.NoError(t, err)
	assert.Equal(t, "Breaking Bad", details.Name)
	assert.Equal(t, "Ended", details.Status)
	assert.Equal(t, []string{"Drama"}, details.Genres)
}

func TestTVDBClient_GetEpisodes_ReturnsParsedList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			_, _ = w.Write([]byte(`{"data":{"token":"tok123"}}`))
		case "/series/81189/episodes/default/eng":
			_, _ = w.Write([]byte(`{"data":{"episodes":[{"id":1,"name":"Pilot","seasonNumber":1,"number":1,"aired":"2008-01-20"}]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewTVDBClient("testkey")
	c.baseURL = server.URL

	episodes, err := c.GetEpisodes(context.Background(), "81189")

	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "Pilot", episodes[0].Name)
	assert.Equal(t, 1, episodes[0].SeasonNumber)
}

func TestTVDBClient_NoAPIKeyReturnsConfigInvalid(t *testing.T) {
	c := NewTVDBClient("")
	_, err := c.GetShowDetails(context.Background(), "81189")
	assert.ErrorIs(t, err, apperr.ConfigInvalid)
}
