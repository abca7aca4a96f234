package scheduler

import (
	"context"
	"fmt"
	"time"
)

const ArchiveJanitorJob = "prune-archive"

// Pruner deletes archived runs that started before cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveJanitor returns a task that removes runs older than retention.
func ArchiveJanitor(p Pruner, retention time.Duration, now func() time.Time) Task {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) (string, error) {
		cutoff := now().Add(-retention)
		n, err := p.PruneBefore(ctx, cutoff)
		if err != nil {
			return "", fmt.Errorf("pruning archive: %w", err)
		}
		return fmt.Sprintf("pruned %d runs started before %s", n, cutoff.UTC().Format(time.RFC3339)), nil
	}
}
