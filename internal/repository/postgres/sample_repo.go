package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/windlab/runwatch/internal/domain/delay"
)

var _ delay.SampleRepo = (*SampleRepoImpl)(nil)

type SampleRepoImpl struct{ db *DB }

func NewSampleRepo(db *DB) *SampleRepoImpl { return &SampleRepoImpl{db: db} }

const (
	qSampleInsert = `
INSERT INTO delay_samples (model, run_date, run_hour, detected_at, delay_minutes)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (model, run_date, run_hour) DO NOTHING
RETURNING id;
`
	qSampleStats = `
SELECT count(*), coalesce(avg(delay_minutes), 0),
       coalesce(min(delay_minutes), 0), coalesce(max(delay_minutes), 0)
FROM delay_samples
WHERE model = $1 AND run_hour = $2 AND detected_at >= $3;
`
	qSampleLast = `
SELECT delay_minutes
FROM delay_samples
WHERE model = $1 AND run_hour = $2 AND detected_at >= $3
ORDER BY detected_at DESC
LIMIT 1;
`
	qSampleDelete = `
DELETE FROM delay_samples WHERE detected_at < $1;
`
)

func (r *SampleRepoImpl) Insert(ctx context.Context, s *delay.Sample) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, qSampleInsert,
		s.Model, s.RunDate, s.RunHour, s.DetectedAt, s.DelayMinutes,
	).Scan(&s.ID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Conflict path: the sample already exists, keep the first one.
		return nil
	case isUniqueViolation(err):
		return nil
	case err != nil:
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *SampleRepoImpl) StatsSince(ctx context.Context, model string, hour int, since time.Time) (delay.Stats, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var st delay.Stats
	if err := r.db.Pool.QueryRow(ctx, qSampleStats, model, hour, since).Scan(
		&st.Count, &st.AvgMinutes, &st.MinMinutes, &st.MaxMinutes,
	); err != nil {
		return delay.Stats{}, fmt.Errorf("aggregate samples: %w", err)
	}
	if st.Count == 0 {
		return st, nil
	}

	if err := r.db.Pool.QueryRow(ctx, qSampleLast, model, hour, since).Scan(&st.LastMinutes); err != nil {
		return delay.Stats{}, fmt.Errorf("latest sample: %w", err)
	}
	return st, nil
}

func (r *SampleRepoImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qSampleDelete, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete samples: %w", err)
	}
	return tag.RowsAffected(), nil
}
