package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/storefront-labs/catalog-projections/internal/core/storage"
)

const expiredBatchSize = 500

// ExpiredFinder is the single repository read the sweeper needs.
type ExpiredFinder interface {
	FindExpired(ctx context.Context, now time.Time, limit int) ([]storage.VersionedProjection, error)
}

// ProjectionDeleter is the slice of the projection store the sweeper drives:
// the normal single-key delete path, so every eviction produces a history
// entry and a change notification.
type ProjectionDeleter interface {
	DeleteInStore(ctx context.Context, projType, store, code string) error
	NearestExpiryTime(ctx context.Context) (*time.Time, error)
}

// Sweeper periodically soft-deletes projections whose disable date time has
// passed. It is stateless: each tick independently queries the expired set.
type Sweeper struct {
	projections ExpiredFinder
	deleter     ProjectionDeleter
	interval    time.Duration
	nowFn       func() time.Time
}

// NewSweeper creates an expiry sweeper.
func NewSweeper(projections ExpiredFinder, deleter ProjectionDeleter, interval time.Duration) *Sweeper {
	return &Sweeper{
		projections: projections,
		deleter:     deleter,
		interval:    interval,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Start runs the sweep loop until the context is cancelled. When the
// nearest upcoming expiry falls inside the configured interval, the next
// wake-up is pulled forward so evictions land close to their deadline.
func (s *Sweeper) Start(ctx context.Context) error {
	slog.Info("[Expiry] Starting sweeper", "interval", s.interval)

	s.sweep(ctx)

	for {
		wait := s.nextWait(ctx)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			s.sweep(ctx)
		case <-ctx.Done():
			timer.Stop()
			slog.Info("[Expiry] Stopping sweeper (context cancelled)")
			return nil
		}
	}
}

// nextWait returns the sleep until the next sweep: the configured interval,
// shortened when a projection expires sooner.
func (s *Sweeper) nextWait(ctx context.Context) time.Duration {
	wait := s.interval

	nearest, err := s.deleter.NearestExpiryTime(ctx)
	if err != nil {
		slog.Error("[Expiry] Failed to read nearest expiry time", "error", err)
		return wait
	}
	if nearest == nil {
		return wait
	}

	until := nearest.Sub(s.nowFn())
	if until < 0 {
		until = 0
	}
	if until < wait {
		wait = until
	}
	return wait
}

func (s *Sweeper) sweep(ctx context.Context) {
	for {
		expired, err := s.projections.FindExpired(ctx, s.nowFn(), expiredBatchSize)
		if err != nil {
			slog.Error("[Expiry] Failed to query expired projections", "error", err)
			return
		}
		if len(expired) == 0 {
			return
		}

		for _, projection := range expired {
			err := s.deleter.DeleteInStore(ctx, projection.Key.Type, projection.Key.Store, projection.Key.Code)
			if err != nil {
				slog.Error("[Expiry] Failed to evict projection",
					"store", projection.Key.Store,
					"type", projection.Key.Type,
					"code", projection.Key.Code,
					"error", err)
				return
			}
		}

		slog.Info("[Expiry] Evicted expired projections", "count", len(expired))

		if len(expired) < expiredBatchSize {
			return
		}
	}
}
