package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"techpulse/internal/domain"
	"techpulse/internal/monitoring"
)

// Fetcher produces one metric snapshot per entity. ok=false means the
// entity failed and yields no record; fetchers never return errors upward.
type Fetcher interface {
	Fetch(ctx context.Context, entityRef string) (*domain.Record, bool)
}

// Driver walks the entity catalog in order, fetching one snapshot per
// entity with a fixed pacing delay between calls. A single entity's
// failure never aborts the loop.
type Driver struct {
	source  string
	catalog []string
	fetcher Fetcher
	delay   time.Duration
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewDriver(source string, catalog []string, f Fetcher, delay time.Duration, m *monitoring.Metrics, l *zap.Logger) *Driver {
	return &Driver{
		source:  source,
		catalog: catalog,
		fetcher: f,
		delay:   delay,
		metrics: m,
		logger:  l,
	}
}

// ExtractAll fetches every catalog entity exactly once, in catalog order,
// and returns the records that succeeded.
func (d *Driver) ExtractAll(ctx context.Context) domain.Batch {
	d.logger.Info("starting extraction",
		zap.String("source", d.source),
		zap.Int("entities", len(d.catalog)))

	batch := make(domain.Batch, 0, len(d.catalog))
	for _, entity := range d.catalog {
		d.logger.Info("extracting entity", zap.String("source", d.source), zap.String("entity", entity))
		if record, ok := d.fetcher.Fetch(ctx, entity); ok {
			batch = append(batch, *record)
			d.metrics.IncFetched(d.source)
		} else {
			d.metrics.IncFetchFailed(d.source)
		}

		// Blanket pacing guard against burst rate-limiting, applied
		// regardless of the entity's outcome.
		time.Sleep(d.delay)
	}

	d.logger.Info("extraction completed",
		zap.String("source", d.source),
		zap.Int("attempted", len(d.catalog)),
		zap.Int("succeeded", len(batch)))
	return batch
}
