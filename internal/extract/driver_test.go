package extract

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"techpulse/internal/domain"
	"techpulse/internal/monitoring"
)

// fakeFetcher records every attempt and fails the entities listed in fail.
type fakeFetcher struct {
	attempts []string
	fail     map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, entityRef string) (*domain.Record, bool) {
	f.attempts = append(f.attempts, entityRef)
	if f.fail[entityRef] {
		return nil, false
	}
	return &domain.Record{
		EntityKey:   entityRef,
		ExtractedAt: time.Now().UTC(),
		Payload:     map[string]any{"entity": entityRef},
	}, true
}

func newTestDriver(catalog []string, f Fetcher) *Driver {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return NewDriver("github", catalog, f, 0, metrics, zap.NewNop())
}

func TestExtractAllAttemptsEveryEntityOnceInOrder(t *testing.T) {
	catalog := []string{"orgA/repoX", "orgB/repoY", "orgC/repoZ"}
	fetcher := &fakeFetcher{fail: map[string]bool{"orgB/repoY": true}}

	batch := newTestDriver(catalog, fetcher).ExtractAll(context.Background())

	require.Equal(t, catalog, fetcher.attempts)
	require.Len(t, batch, 2)
	require.Equal(t, "orgA/repoX", batch[0].EntityKey)
	require.Equal(t, "orgC/repoZ", batch[1].EntityKey)
}

func TestExtractAllContinuesPastFailures(t *testing.T) {
	tests := []struct {
		name    string
		catalog []string
		fail    map[string]bool
		want    []string
	}{
		{
			name:    "all succeed",
			catalog: []string{"a", "b"},
			want:    []string{"a", "b"},
		},
		{
			name:    "first fails",
			catalog: []string{"a", "b"},
			fail:    map[string]bool{"a": true},
			want:    []string{"b"},
		},
		{
			name:    "all fail",
			catalog: []string{"a", "b"},
			fail:    map[string]bool{"a": true, "b": true},
			want:    []string{},
		},
		{
			name:    "empty catalog",
			catalog: []string{},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{attempts: []string{}, fail: tt.fail}
			batch := newTestDriver(tt.catalog, fetcher).ExtractAll(context.Background())

			require.Equal(t, tt.catalog, fetcher.attempts)
			got := make([]string, 0, len(batch))
			for _, record := range batch {
				got = append(got, record.EntityKey)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAllPacesEveryEntity(t *testing.T) {
	catalog := []string{"a", "b", "c"}
	fetcher := &fakeFetcher{fail: map[string]bool{"b": true}}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	delay := 20 * time.Millisecond
	driver := NewDriver("github", catalog, fetcher, delay, metrics, zap.NewNop())

	start := time.Now()
	driver.ExtractAll(context.Background())

	// The pacing delay applies after every entity, success or failure.
	require.GreaterOrEqual(t, time.Since(start), 3*delay)
}
