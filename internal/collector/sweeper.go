package collector

import (
	"context"
	"time"
)

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("Expired sessions removed", "removed", n, "active", r.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}
