package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposearch/internal/config"
)

const searchBody = `{
  "total_count": 2,
  "incomplete_results": false,
  "items": [
    {
      "id": 3432266,
      "name": "kotlin",
      "full_name": "JetBrains/kotlin",
      "description": "The Kotlin Programming Language.",
      "language": "Kotlin",
      "html_url": "https://github.com/JetBrains/kotlin",
      "stargazers_count": 48000,
      "forks_count": 5700,
      "updated_at": "2024-05-01T10:00:00Z",
      "owner": {
        "id": 878437,
        "login": "JetBrains",
        "avatar_url": "https://avatars.githubusercontent.com/u/878437?v=4",
        "html_url": "https://github.com/JetBrains",
        "type": "Organization"
      }
    },
    {
      "id": 51148780,
      "name": "architecture-samples",
      "full_name": "android/architecture-samples",
      "stargazers_count": 44000,
      "forks_count": 11000,
      "owner": {"id": 32689599, "login": "android", "type": "Organization"}
    }
  ]
}`

func TestGitHub_SearchRepositories(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	gh, err := NewGitHub(config.GitHubConfig{
		BaseURL: srv.URL,
		Token:   "secret",
		PerPage: 15,
		Sort:    "stars",
		Order:   "desc",
	})
	require.NoError(t, err)

	records, err := gh.SearchRepositories(context.Background(), "kotlin", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, got)
	assert.Equal(t, "/search/repositories", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "kotlin", q.Get("q"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "15", q.Get("per_page"))
	assert.Equal(t, "stars", q.Get("sort"))
	assert.Equal(t, "desc", q.Get("order"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))

	first := records[0]
	assert.Equal(t, int64(3432266), first.ID)
	assert.Equal(t, "JetBrains/kotlin", first.FullName)
	assert.Equal(t, "Kotlin", first.Language)
	assert.Equal(t, 48000, first.Stars)
	assert.Equal(t, 5700, first.Forks)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), first.UpdatedAt.UTC())
	assert.Equal(t, OwnerRecord{
		ID:        878437,
		Login:     "JetBrains",
		AvatarURL: "https://avatars.githubusercontent.com/u/878437?v=4",
		HTMLURL:   "https://github.com/JetBrains",
		Type:      "Organization",
	}, first.Owner)

	assert.Empty(t, records[1].Description)
	assert.True(t, records[1].UpdatedAt.IsZero())
}

func TestGitHub_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count": 0, "items": []}`))
	}))
	defer srv.Close()

	gh, err := NewGitHub(config.GitHubConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	records, err := gh.SearchRepositories(context.Background(), "nothing-matches-this", 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGitHub_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message": "Service Unavailable"}`))
	}))
	defer srv.Close()

	gh, err := NewGitHub(config.GitHubConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	records, err := gh.SearchRepositories(context.Background(), "kotlin", 1)
	assert.ErrorIs(t, err, ErrSearch)
	assert.Contains(t, err.Error(), `query "kotlin" page 1`)
	assert.Nil(t, records)
}

func TestNewGitHub(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.GitHubConfig
		perPage int
		wantErr bool
	}{
		{name: "defaults", cfg: config.GitHubConfig{}, perPage: defaultPerPage},
		{name: "clamped", cfg: config.GitHubConfig{PerPage: 500}, perPage: maxPerPage},
		{name: "explicit", cfg: config.GitHubConfig{PerPage: 30, TimeoutSec: 5}, perPage: 30},
		{name: "bad base url", cfg: config.GitHubConfig{BaseURL: "://nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh, err := NewGitHub(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.perPage, gh.perPage)
		})
	}
}

// capServer answers like GitHub does for pages crossing the 1000-hit cap.
func capServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		if page*perPage > 1000 || r.URL.Query().Get("q") == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message": "Only the first 1000 search results are available"}`))
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHub_SearchCap(t *testing.T) {
	tests := []struct {
		name      string
		perPage   int
		page      int
		wantCalls int32
		wantLen   int
	}{
		{name: "last page under the cap", perPage: 50, page: 20, wantCalls: 1, wantLen: 2},
		{name: "page starting at the cap", perPage: 50, page: 21, wantCalls: 0},
		{name: "page crossing the cap", perPage: 30, page: 34, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := capServer(t, &calls)
			gh, err := NewGitHub(config.GitHubConfig{BaseURL: srv.URL, PerPage: tt.perPage})
			require.NoError(t, err)

			records, err := gh.SearchRepositories(context.Background(), "kotlin", tt.page)
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Len(t, records, tt.wantLen)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestGitHub_UnprocessableFirstPage(t *testing.T) {
	var calls atomic.Int32
	srv := capServer(t, &calls)
	gh, err := NewGitHub(config.GitHubConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	records, err := gh.SearchRepositories(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrSearch)
	assert.Nil(t, records)
	assert.Equal(t, int32(1), calls.Load())
}
