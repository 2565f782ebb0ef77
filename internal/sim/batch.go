package sim

import (
	"context"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent simulator for one batch member.
type Factory func(seed uint64) (*Simulator, error)

// Batch runs n simulators concurrently, each seeded seedStart+i. Every
// member owns its own environment; environments that implement io.Closer
// are closed when their run ends.
func Batch(ctx context.Context, n int, seedStart uint64, reps int, f Factory) ([]*Result, error) {
	results := make([]*Result, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := range n {
		g.Go(func() error {
			s, err := f(seedStart + uint64(i))
			if err != nil {
				return err
			}
			if c, ok := s.env.(io.Closer); ok {
				defer c.Close()
			}
			res, err := s.Run(ctx, reps)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MeanReward averages the per-episode reward over every result.
func MeanReward(results []*Result) float64 {
	total, count := 0.0, 0
	for _, r := range results {
		for _, ep := range r.Episodes {
			total += ep.Reward
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
