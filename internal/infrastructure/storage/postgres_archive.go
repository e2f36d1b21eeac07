package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// PostgresArchive records one row per completed run for later inspection.
// It is optional: the pipeline only gets one when a DSN is configured.
type PostgresArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunArchive = (*PostgresArchive)(nil)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres using the given DSN.
func Open(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresArchive(db), nil
}

// SaveRun upserts the run snapshot keyed by its generation day.
func (a *PostgresArchive) SaveRun(ctx context.Context, digest domain.Digest, reportPath string) error {
	if a.db == nil {
		return nil
	}

	query, args, err := a.builder.
		Insert("digest_runs").
		Columns("run_day", "generated_at", "item_count", "fetched_count", "dropped_count", "estimated_cost", "report_path").
		Values(
			digest.GeneratedAt.Format("2006-01-02"),
			digest.GeneratedAt,
			digest.Stats.ItemCount,
			digest.Stats.FetchedCount,
			digest.Stats.DroppedCount,
			digest.Stats.EstimatedCost,
			reportPath,
		).
		Suffix(`ON CONFLICT (run_day) DO UPDATE
                SET generated_at = EXCLUDED.generated_at,
                    item_count = EXCLUDED.item_count,
                    fetched_count = EXCLUDED.fetched_count,
                    dropped_count = EXCLUDED.dropped_count,
                    estimated_cost = EXCLUDED.estimated_cost,
                    report_path = EXCLUDED.report_path`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	return nil
}
