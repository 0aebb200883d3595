package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"techpulse/internal/domain"
	"techpulse/internal/monitoring"
)

// Target identifies a permanent raw table and its entity key column.
type Target struct {
	Source    string // metric source label: "github", "pypi"
	Table     string
	KeyColumn string
}

var (
	GitHubRepos  = Target{Source: "github", Table: "github_repos", KeyColumn: "repo_name"}
	PyPIPackages = Target{Source: "pypi", Table: "pypi_packages", KeyColumn: "package_name"}
)

// loadConn is the slice of pgx.Conn the loader uses. Connections come
// through the connect field so tests can drive the transactional path
// with a fake session.
type loadConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Warehouse loads extraction batches into one permanent raw table using a
// two-phase approach: stage JSON text into a session-local temporary
// table, then promote every staged row with a single INSERT ... SELECT
// that parses the text server-side. Each Load opens its own exclusive
// connection and either promotes the whole surviving batch or nothing.
type Warehouse struct {
	url     string
	schema  string
	target  Target
	connect func(ctx context.Context) (loadConn, error)
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewWarehouse(url, schema string, target Target, m *monitoring.Metrics, l *zap.Logger) *Warehouse {
	w := &Warehouse{
		url:     url,
		schema:  schema,
		target:  target,
		metrics: m,
		logger:  l,
	}
	w.connect = func(ctx context.Context) (loadConn, error) {
		conn, err := pgx.Connect(ctx, w.url)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return w
}

// Ping verifies the warehouse is reachable.
func (w *Warehouse) Ping(ctx context.Context) error {
	conn, err := w.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

// stagedRow is the tuple shape staged before promotion.
type stagedRow struct {
	extractedAt time.Time
	entityKey   string
	rawJSON     string
}

// Load stages and promotes a batch, returning the number of committed
// rows. Staging or promotion errors roll the transaction back and
// propagate; the permanent table is unchanged in that case.
func (w *Warehouse) Load(ctx context.Context, batch domain.Batch) (int, error) {
	if len(batch) == 0 {
		w.logger.Warn("no data to save", zap.String("table", w.target.Table))
		return 0, nil
	}

	conn, err := w.connect(ctx)
	if err != nil {
		return 0, fmt.Errorf("connect warehouse: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", pgx.Identifier{w.schema}.Sanitize())); err != nil {
		return 0, fmt.Errorf("set schema context: %w", err)
	}

	stage := w.target.Table + "_stage"
	createStage := fmt.Sprintf(
		`CREATE TEMPORARY TABLE %s (extracted_at timestamptz, entity_key text, raw_json text) ON COMMIT DROP`,
		pgx.Identifier{stage}.Sanitize())
	if _, err := tx.Exec(ctx, createStage); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}

	rows := w.stageRows(batch)
	if len(rows) == 0 {
		w.logger.Warn("no valid records to insert after filtering", zap.String("table", w.target.Table))
		return 0, nil
	}

	insert := fmt.Sprintf(
		`INSERT INTO %s (extracted_at, entity_key, raw_json) VALUES ($1, $2, $3)`,
		pgx.Identifier{stage}.Sanitize())
	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(insert, row.extractedAt, row.entityKey, row.rawJSON)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return 0, fmt.Errorf("stage batch insert: %w", err)
	}

	promote := fmt.Sprintf(
		`INSERT INTO %s (extracted_at, %s, raw_data)
		 SELECT extracted_at, entity_key, raw_json::jsonb FROM %s`,
		pgx.Identifier{w.target.Table}.Sanitize(),
		pgx.Identifier{w.target.KeyColumn}.Sanitize(),
		pgx.Identifier{stage}.Sanitize())
	ct, err := tx.Exec(ctx, promote)
	if err != nil {
		return 0, fmt.Errorf("promote staged rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	loaded := int(ct.RowsAffected())
	w.metrics.AddRowsLoaded(w.target.Source, loaded)
	w.logger.Info("successfully saved batch to warehouse",
		zap.String("table", w.target.Table),
		zap.Int("rows", loaded))
	return loaded, nil
}

// stageRows serializes each record's payload to JSON text and re-parses
// it as a validation gate. A record failing either step is dropped and
// logged; it never fails the batch.
func (w *Warehouse) stageRows(batch domain.Batch) []stagedRow {
	rows := make([]stagedRow, 0, len(batch))
	for _, record := range batch {
		raw, err := json.Marshal(record.Payload)
		if err == nil {
			var probe any
			err = json.Unmarshal(raw, &probe)
		}
		if err != nil {
			w.logger.Error("JSON serialization/validation failed, dropping record",
				zap.String("entity", record.EntityKey),
				zap.Error(err))
			w.metrics.IncDropped(w.target.Source)
			continue
		}
		rows = append(rows, stagedRow{
			extractedAt: record.ExtractedAt,
			entityKey:   record.EntityKey,
			rawJSON:     string(raw),
		})
	}
	return rows
}
