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

// PyPIFetcher pulls package metadata from the PyPI JSON API and recent
// download counts from pypistats. Neither API requires authentication.
type PyPIFetcher struct {
	client   *apiClient
	baseURL  string
	statsURL string
	logger   *zap.Logger
}

func NewPyPIFetcher(cfg *config.Config, m *monitoring.Metrics, l *zap.Logger) *PyPIFetcher {
	return &PyPIFetcher{
		client: newAPIClient(
			time.Duration(cfg.HTTPTimeoutSeconds)*time.Second,
			time.Duration(cfg.CooldownSeconds)*time.Second,
			nil, "pypi", m, l),
		baseURL:  cfg.PyPIAPIURL,
		statsURL: cfg.PyPIStatsAPIURL,
		logger:   l,
	}
}

// Fetch returns the merged metric snapshot for one package, or ok=false if
// the metadata call failed. The download-statistics call degrades to zero
// counts when pypistats is unavailable.
func (f *PyPIFetcher) Fetch(ctx context.Context, packageName string) (*domain.Record, bool) {
	var pkg map[string]any
	if err := f.client.getPrimary(ctx, fmt.Sprintf("%s/%s/json", f.baseURL, packageName), &pkg); err != nil {
		f.logger.Error("failed to fetch package", zap.String("package", packageName), zap.Error(err))
		return nil, false
	}

	var stats map[string]any
	f.client.getSecondary(ctx, fmt.Sprintf("%s/packages/%s/recent", f.statsURL, packageName), &stats)
	downloads, _ := stats["data"].(map[string]any)

	info, ok := pkg["info"].(map[string]any)
	if !ok {
		info = map[string]any{}
	}
	releases, ok := pkg["releases"].(map[string]any)
	if !ok {
		releases = map[string]any{}
	}

	extractedAt := time.Now().UTC()
	payload := map[string]any{
		"package_name":             packageName,
		"version":                  info["version"],
		"summary":                  info["summary"],
		"description_content_type": info["description_content_type"],
		"home_page":                info["home_page"],
		"author":                   info["author"],
		"author_email":             info["author_email"],
		"maintainer":               info["maintainer"],
		"license":                  info["license"],
		"keywords":                 info["keywords"],
		"classifiers":              listOrEmpty(info, "classifiers"),
		"requires_dist":            listOrEmpty(info, "requires_dist"),
		"requires_python":          info["requires_python"],
		"project_urls":             mapOrEmpty(info, "project_urls"),
		"release_count":            len(releases),
		"latest_release_info":      latestReleaseInfo(info, releases),
		"downloads_last_day":       numOrZero(downloads, "last_day"),
		"downloads_last_week":      numOrZero(downloads, "last_week"),
		"downloads_last_month":     numOrZero(downloads, "last_month"),
		"extracted_at":             extractedAt.Format(time.RFC3339),
	}

	f.logger.Info("successfully extracted package data", zap.String("package", packageName))
	return &domain.Record{EntityKey: packageName, ExtractedAt: extractedAt, Payload: payload}, true
}

// latestReleaseInfo summarizes the first uploaded file of the current
// version; an empty mapping when the version has no files.
func latestReleaseInfo(info, releases map[string]any) map[string]any {
	version, _ := info["version"].(string)
	files, _ := releases[version].([]any)
	if len(files) == 0 {
		return map[string]any{}
	}
	first, ok := files[0].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return map[string]any{
		"upload_time":    first["upload_time"],
		"python_version": first["python_version"],
		"size":           first["size"],
		"filename":       first["filename"],
	}
}

func listOrEmpty(m map[string]any, key string) any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return []any{}
}

func mapOrEmpty(m map[string]any, key string) any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}
