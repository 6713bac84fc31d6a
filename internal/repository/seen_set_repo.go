package repository

import "context"

// SeenSet records keys already handled during one processor run.
type SeenSet interface {
	// Add records key and reports whether it was newly added.
	Add(ctx context.Context, key string) (bool, error)
	// Contains reports whether key has been recorded.
	Contains(ctx context.Context, key string) (bool, error)
	// Reset discards every key of the run.
	Reset(ctx context.Context) error
}
