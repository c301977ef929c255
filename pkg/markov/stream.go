package markov

import (
	"context"
	"log/slog"
)

// WalkContext is Walk with cancellation. The context is checked before every
// step; once it is done the tokens produced so far are returned together with
// ctx.Err().
func WalkContext(ctx context.Context, start Partition, m *Mapping, rng Chooser, opts ...WalkOption) ([]string, error) {
	w := NewWalker(start, m, rng, opts...)
	for !w.done && !w.Limited() {
		if err := ctx.Err(); err != nil {
			w.options.logger.DebugContext(ctx, "Walk cancelled by context",
				slog.Int("generated_length", w.steps),
			)
			return w.output, err
		}
		w.Step()
	}
	w.logEnd()
	return w.output, nil
}

// Stream performs a walk in a new goroutine and sends the seed tokens and then
// every generated token on the returned channel. The channel is closed when
// the walk is done, the step limit is reached or ctx is cancelled.
//
// The channel is unbuffered, so the walk advances only as fast as the reader
// consumes tokens.
func Stream(ctx context.Context, start Partition, m *Mapping, rng Chooser, opts ...WalkOption) <-chan string {
	tokenChan := make(chan string)
	w := NewWalker(start, m, rng, opts...)

	go func() {
		defer close(tokenChan)

		for _, token := range start {
			select {
			case <-ctx.Done():
				return
			case tokenChan <- token:
			}
		}

		for !w.done && !w.Limited() {
			select {
			case <-ctx.Done():
				w.options.logger.DebugContext(ctx, "Walk stream cancelled by context")
				return
			default:
				// continue
			}

			token, ok := w.Step()
			if !ok {
				break
			}
			select {
			case <-ctx.Done():
				return
			case tokenChan <- token:
			}
		}
		w.logEnd()
	}()

	return tokenChan
}
