package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/windlab/runwatch/internal/domain/run"
)

var _ run.WatermarkRepo = (*WatermarkRepoImpl)(nil)

// WatermarkRepoImpl stores the last notified run per model. Monotonic
// advancement is enforced in SQL so no read-modify-write race can move
// a watermark backward.
type WatermarkRepoImpl struct{ db *DB }

func NewWatermarkRepo(db *DB) *WatermarkRepoImpl { return &WatermarkRepoImpl{db: db} }

const (
	qWatermarkGet = `
SELECT run_at FROM watermarks WHERE model = $1;
`
	qWatermarkAdvance = `
INSERT INTO watermarks (model, run_at, notified_at)
VALUES ($1, $2, now())
ON CONFLICT (model) DO UPDATE
SET run_at = EXCLUDED.run_at, notified_at = now()
WHERE watermarks.run_at < EXCLUDED.run_at;
`
)

func (r *WatermarkRepoImpl) Last(ctx context.Context, model string) (time.Time, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var at time.Time
	err := r.db.Pool.QueryRow(ctx, qWatermarkGet, model).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query watermark: %w", err)
	}
	return at.UTC(), nil
}

func (r *WatermarkRepoImpl) Advance(ctx context.Context, model string, runAt time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qWatermarkAdvance, model, runAt.UTC()); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}
