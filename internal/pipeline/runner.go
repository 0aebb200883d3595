package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"techpulse/internal/config"
	"techpulse/internal/domain"
)

var (
	// ErrMissingToken means the GitHub pipeline was started without a
	// credential. The PyPI APIs are unauthenticated, so only the GitHub
	// runner checks this.
	ErrMissingToken = errors.New("github token not provided: set GITHUB_TOKEN")

	// ErrRunInProgress means another run of the same pipeline holds the
	// run lock.
	ErrRunInProgress = errors.New("run already in progress for this source")
)

// Extractor produces the ordered batch for one run.
type Extractor interface {
	ExtractAll(ctx context.Context) domain.Batch
}

// Loader lands a batch in the warehouse, returning the committed row count.
type Loader interface {
	Load(ctx context.Context, batch domain.Batch) (int, error)
}

// Locker guards against concurrent runs of the same pipeline.
type Locker interface {
	AcquireRunLock(ctx context.Context, source string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, source string) error
}

// Runner composes one source's extraction driver and loader into a single
// run. Any error it returns fails the whole run; the orchestrator maps
// that to task failure.
type Runner struct {
	source    string
	token     string
	needToken bool
	extractor Extractor
	loader    Loader
	locker    Locker // optional, may be nil
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewGitHubRunner builds the GitHub pipeline runner. It is the only runner
// with a credential precondition.
func NewGitHubRunner(cfg *config.Config, ex Extractor, ld Loader, lk Locker, l *zap.Logger) *Runner {
	return &Runner{
		source:    "github",
		token:     cfg.GitHubToken,
		needToken: true,
		extractor: ex,
		loader:    ld,
		locker:    lk,
		lockTTL:   time.Duration(cfg.RunLockTTLMinutes) * time.Minute,
		logger:    l,
	}
}

// NewPyPIRunner builds the PyPI pipeline runner.
func NewPyPIRunner(cfg *config.Config, ex Extractor, ld Loader, lk Locker, l *zap.Logger) *Runner {
	return &Runner{
		source:    "pypi",
		extractor: ex,
		loader:    ld,
		locker:    lk,
		lockTTL:   time.Duration(cfg.RunLockTTLMinutes) * time.Minute,
		logger:    l,
	}
}

// Run executes one full resnapshot: extract every catalog entity, then
// load the batch. An empty batch skips the load and is reported, not
// raised; downstream validation decides whether a zero count fails the
// day.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if r.needToken && r.token == "" {
		return 0, ErrMissingToken
	}

	if r.locker != nil {
		acquired, err := r.locker.AcquireRunLock(ctx, r.source, r.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return 0, ErrRunInProgress
		}
		defer func() {
			if err := r.locker.ReleaseRunLock(ctx, r.source); err != nil {
				r.logger.Error("failed to release run lock", zap.String("source", r.source), zap.Error(err))
			}
		}()
	}

	r.logger.Info("starting pipeline run", zap.String("source", r.source))

	batch := r.extractor.ExtractAll(ctx)
	if len(batch) == 0 {
		r.logger.Warn("no data extracted, skipping load", zap.String("source", r.source))
		return 0, nil
	}

	loaded, err := r.loader.Load(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("%s load failed: %w", r.source, err)
	}

	r.logger.Info("pipeline run completed",
		zap.String("source", r.source),
		zap.Int("extracted", len(batch)),
		zap.Int("loaded", loaded))
	return loaded, nil
}
