package ransac

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunParallel performs the same trial budget as Run across workers
// goroutines. Worker w draws from its own source seeded with seed+w and
// handles trials w, w+workers, and so on. The per-worker records are merged
// so that the larger inlier count wins and the lower trial index breaks ties.
//
// The model's capabilities must be safe for concurrent use. OnTrial calls are
// serialized; the Best field of the events is the reporting worker's own
// best count. Cancelling ctx stops all workers and returns ctx's error.
func (e *Engine) RunParallel(ctx context.Context, ds Dataset, workers int, seed int64) (*Result, error) {
	if err := e.validate(ds); err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, &ConfigError{Field: "workers", Reason: "must be positive"}
	}
	if workers > e.Config.Trials {
		workers = e.Config.Trials
	}

	g, gctx := errgroup.WithContext(ctx)
	locals := make([]*worker, workers)
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wk := newWorker(ds, e.Model, e.Config, rand.New(rand.NewSource(seed+int64(w))))
		locals[w] = wk
		g.Go(func() error {
			for t := w; t < e.Config.Trials; t += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				ev, err := wk.step(t)
				if err != nil {
					return err
				}
				if e.OnTrial != nil {
					mu.Lock()
					e.OnTrial(ev)
					mu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reduce(locals).result(e.Config.MinInliers), nil
}

// reduce returns the winning worker record carrying the summed counters.
func reduce(locals []*worker) *worker {
	best := locals[0]
	trials, accepted := best.trials, best.accepted
	for _, wk := range locals[1:] {
		trials += wk.trials
		accepted += wk.accepted
		if wk.best > best.best || (wk.best == best.best && wk.best > 0 && wk.bestTrial < best.bestTrial) {
			best = wk
		}
	}
	best.trials = trials
	best.accepted = accepted
	return best
}
