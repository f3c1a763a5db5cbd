package app

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"trip_hotel/internal/domain"
)

// lockedSource lets several coordinators pull disjoint records from one source.
type lockedSource struct {
	mu  sync.Mutex
	src domain.RecordSource
}

func (s *lockedSource) Next(ctx context.Context) (domain.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Next(ctx)
}

// RunWorkers runs n coordinators against one shared source and merges their
// reports. Any worker failing to acquire its session fails the whole run.
func RunWorkers(ctx context.Context, n int, newCoordinator func() *Coordinator, src domain.RecordSource) (domain.Report, error) {
	if n <= 1 {
		return newCoordinator().Run(ctx, src)
	}
	shared := &lockedSource{src: src}

	var (
		mu    sync.Mutex
		total = domain.NewReport()
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			rep, err := newCoordinator().Run(gctx, shared)
			mu.Lock()
			total.Merge(rep)
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return total, err
}
