package fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"techpulse/internal/config"
	"techpulse/internal/domain"
	"techpulse/internal/monitoring"
)

// GitHubFetcher pulls repository metrics from the GitHub REST API.
type GitHubFetcher struct {
	client  *apiClient
	baseURL string
	logger  *zap.Logger
}

func NewGitHubFetcher(cfg *config.Config, m *monitoring.Metrics, l *zap.Logger) *GitHubFetcher {
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.GitHubToken,
		"Accept":        "application/vnd.github.v3+json",
	}
	return &GitHubFetcher{
		client: newAPIClient(
			time.Duration(cfg.HTTPTimeoutSeconds)*time.Second,
			time.Duration(cfg.CooldownSeconds)*time.Second,
			headers, "github", m, l),
		baseURL: cfg.GitHubAPIURL,
		logger:  l,
	}
}

// Fetch returns the merged metric snapshot for one repository, or ok=false
// if the primary call failed. Enrichment calls (contributors, releases)
// degrade to defaults instead of failing the entity.
func (f *GitHubFetcher) Fetch(ctx context.Context, repoName string) (*domain.Record, bool) {
	var repo map[string]any
	if err := f.client.getPrimary(ctx, fmt.Sprintf("%s/repos/%s", f.baseURL, repoName), &repo); err != nil {
		f.logger.Error("failed to fetch repository", zap.String("repo", repoName), zap.Error(err))
		return nil, false
	}

	var contributors []any
	f.client.getSecondary(ctx, fmt.Sprintf("%s/repos/%s/contributors", f.baseURL, repoName), &contributors)

	var releases []any
	f.client.getSecondary(ctx, fmt.Sprintf("%s/repos/%s/releases", f.baseURL, repoName), &releases)

	extractedAt := time.Now().UTC()
	var latestRelease any
	if len(releases) > 0 {
		latestRelease = releases[0]
	}
	var license any
	if lic, ok := repo["license"].(map[string]any); ok {
		license = lic["name"]
	}
	topics, ok := repo["topics"].([]any)
	if !ok {
		topics = []any{}
	}

	payload := map[string]any{
		"repo_name":          repoName,
		"full_name":          repo["full_name"],
		"description":        repo["description"],
		"language":           repo["language"],
		"stars":              numOrZero(repo, "stargazers_count"),
		"forks":              numOrZero(repo, "forks_count"),
		"watchers":           numOrZero(repo, "watchers_count"),
		"open_issues":        numOrZero(repo, "open_issues_count"),
		"size":               numOrZero(repo, "size"),
		"created_at":         repo["created_at"],
		"updated_at":         repo["updated_at"],
		"pushed_at":          repo["pushed_at"],
		"default_branch":     repo["default_branch"],
		"contributors_count": len(contributors),
		"releases_count":     len(releases),
		"latest_release":     latestRelease,
		"topics":             topics,
		"license":            license,
		"extracted_at":       extractedAt.Format(time.RFC3339),
	}

	f.logger.Info("successfully extracted repository data", zap.String("repo", repoName))
	return &domain.Record{EntityKey: repoName, ExtractedAt: extractedAt, Payload: payload}, true
}

// numOrZero keeps numeric fields present with a zero default so every
// record carries the full field set.
func numOrZero(m map[string]any, key string) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return float64(0)
}
