package markov

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// WalkMany runs one walk per start partition over the shared mapping m, with
// at most limit walks in flight (limit <= 0 means no limit). newChooser is
// called once per walk with its index so each walk owns its randomness; a nil
// newChooser gives every walk DefaultChooser.
//
// The result holds the output of walk i at index i. If ctx is cancelled the
// first context error is returned along with whatever the walks produced.
func WalkMany(ctx context.Context, m *Mapping, starts []Partition, newChooser func(i int) Chooser, limit int, opts ...WalkOption) ([][]string, error) {
	results := make([][]string, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, start := range starts {
		g.Go(func() error {
			var rng Chooser
			if newChooser != nil {
				rng = newChooser(i)
			} else {
				rng = DefaultChooser()
			}
			out, err := WalkContext(gctx, start, m, rng, opts...)
			results[i] = out
			if err != nil {
				return fmt.Errorf("walk %d from %q: %w", i, start.String(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
