package subscriber

import "context"

// Store is the read side of the subscription database. Writes belong to
// the chat front end, which is a separate process.
type Store interface {
	// ListSubscribed returns the chat ids of active subscribers who
	// follow the model and whose run-hour set is empty or contains hour.
	ListSubscribed(ctx context.Context, model string, hour int) ([]int64, error)
}
