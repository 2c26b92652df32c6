package postgres

import (
	"context"
	"fmt"

	"github.com/windlab/runwatch/internal/domain/subscriber"
)

var _ subscriber.Store = (*SubscriberRepoImpl)(nil)

// SubscriberRepoImpl is the read side of the subscription table owned
// by the chat front end.
type SubscriberRepoImpl struct{ db *DB }

func NewSubscriberRepo(db *DB) *SubscriberRepoImpl { return &SubscriberRepoImpl{db: db} }

const qSubscribed = `
SELECT chat_id
FROM subscribers
WHERE active
  AND $1 = ANY(models)
  AND (cardinality(run_hours) = 0 OR $2 = ANY(run_hours))
ORDER BY chat_id;
`

func (r *SubscriberRepoImpl) ListSubscribed(ctx context.Context, model string, hour int) ([]int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qSubscribed, model, hour)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
