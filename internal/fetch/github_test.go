package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"techpulse/internal/config"
	"techpulse/internal/monitoring"
)

// githubRepoFields is the stable field set every GitHub record must carry.
var githubRepoFields = []string{
	"repo_name", "full_name", "description", "language", "stars", "forks",
	"watchers", "open_issues", "size", "created_at", "updated_at",
	"pushed_at", "default_branch", "contributors_count", "releases_count",
	"latest_release", "topics", "license", "extracted_at",
}

func newGitHubFetcher(t *testing.T, baseURL string) (*GitHubFetcher, *monitoring.Metrics) {
	t.Helper()
	cfg := &config.Config{
		GitHubToken:        "test-token",
		GitHubAPIURL:       baseURL,
		HTTPTimeoutSeconds: 5,
		CooldownSeconds:    0, // keep rate-limit retries instant in tests
	}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return NewGitHubFetcher(cfg, metrics, zap.NewNop()), metrics
}

func TestGitHubFetcherMergesAllCalls(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/repos/orgA/repoX":
			w.Write([]byte(`{
				"full_name": "orgA/repoX",
				"description": "a repo",
				"language": "Go",
				"stargazers_count": 1200,
				"forks_count": 34,
				"watchers_count": 1200,
				"open_issues_count": 7,
				"size": 4096,
				"created_at": "2015-01-01T00:00:00Z",
				"updated_at": "2026-08-01T00:00:00Z",
				"pushed_at": "2026-08-02T00:00:00Z",
				"default_branch": "main",
				"topics": ["etl", "metrics"],
				"license": {"name": "Apache License 2.0"}
			}`))
		case "/repos/orgA/repoX/contributors":
			w.Write([]byte(`[{"login": "a"}, {"login": "b"}, {"login": "c"}]`))
		case "/repos/orgA/repoX/releases":
			w.Write([]byte(`[{"tag_name": "v2.0"}, {"tag_name": "v1.0"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fetcher, _ := newGitHubFetcher(t, srv.URL)
	record, ok := fetcher.Fetch(context.Background(), "orgA/repoX")
	require.True(t, ok)
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, "orgA/repoX", record.EntityKey)
	require.Equal(t, "UTC", record.ExtractedAt.Location().String())

	require.Equal(t, "orgA/repoX", record.Payload["repo_name"])
	require.Equal(t, float64(1200), record.Payload["stars"])
	require.Equal(t, 3, record.Payload["contributors_count"])
	require.Equal(t, 2, record.Payload["releases_count"])
	require.Equal(t, map[string]any{"tag_name": "v2.0"}, record.Payload["latest_release"])
	require.Equal(t, []any{"etl", "metrics"}, record.Payload["topics"])
	require.Equal(t, "Apache License 2.0", record.Payload["license"])

	for _, field := range githubRepoFields {
		require.Contains(t, record.Payload, field)
	}
}

func TestGitHubFetcherRateLimitRetry(t *testing.T) {
	var primaryCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/orgA/repoX":
			if atomic.AddInt32(&primaryCalls, 1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte(`{"full_name": "orgA/repoX"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	fetcher, _ := newGitHubFetcher(t, srv.URL)
	record, ok := fetcher.Fetch(context.Background(), "orgA/repoX")
	require.True(t, ok)
	require.EqualValues(t, 2, atomic.LoadInt32(&primaryCalls))
	require.Equal(t, "orgA/repoX", record.Payload["full_name"])
}

func TestGitHubFetcherRetryFailureIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fetcher, _ := newGitHubFetcher(t, srv.URL)
	_, ok := fetcher.Fetch(context.Background(), "orgA/repoX")
	require.False(t, ok)
}

func TestGitHubFetcherNotFoundYieldsNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fetcher, _ := newGitHubFetcher(t, srv.URL)
	_, ok := fetcher.Fetch(context.Background(), "orgB/repoY")
	require.False(t, ok)
}

func TestGitHubFetcherSecondaryFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/orgA/repoX" {
			w.Write([]byte(`{"full_name": "orgA/repoX"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher, metrics := newGitHubFetcher(t, srv.URL)
	record, ok := fetcher.Fetch(context.Background(), "orgA/repoX")
	require.True(t, ok)
	require.Equal(t, 0, record.Payload["contributors_count"])
	require.Equal(t, 0, record.Payload["releases_count"])
	require.Nil(t, record.Payload["latest_release"])
	// Both degraded enrichment calls are counted.
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.EnrichmentFailures.WithLabelValues("github")))
	// Missing upstream fields stay present with typed defaults.
	require.Contains(t, record.Payload, "stars")
	require.Equal(t, float64(0), record.Payload["stars"])
	require.Contains(t, record.Payload, "description")
	require.Nil(t, record.Payload["description"])
	require.Equal(t, []any{}, record.Payload["topics"])
}

func TestGitHubFetcherMalformedJSONYieldsNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"full_name": `))
	}))
	defer srv.Close()

	fetcher, _ := newGitHubFetcher(t, srv.URL)
	_, ok := fetcher.Fetch(context.Background(), "orgA/repoX")
	require.False(t, ok)
}
