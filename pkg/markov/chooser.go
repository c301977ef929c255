package markov

import (
	"math/rand/v2"
	"sync"
)

// Chooser is the source of randomness for a walk. Choose returns an index in
// [0, n) for n >= 1; a uniform Chooser makes every successor equally likely,
// so duplicated successors are picked proportionally more often.
type Chooser interface {
	Choose(n int) int
}

// ChooserFunc adapts a plain function to the Chooser interface.
type ChooserFunc func(n int) int

// Choose calls f(n).
func (f ChooserFunc) Choose(n int) int {
	return f(n)
}

// RandChooser is a seeded uniform Chooser. It is safe for concurrent use,
// although walks that need reproducible output should each get their own.
type RandChooser struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandChooser returns a RandChooser backed by a PCG source seeded with
// seed. The same seed always produces the same sequence of choices.
func NewRandChooser(seed uint64) *RandChooser {
	return &RandChooser{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Choose returns a uniform index in [0, n).
func (r *RandChooser) Choose(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}

type globalChooser struct{}

func (globalChooser) Choose(n int) int { return rand.IntN(n) }

// DefaultChooser returns a Chooser backed by the randomly seeded global
// generator of math/rand/v2. It is safe for concurrent use.
func DefaultChooser() Chooser {
	return globalChooser{}
}

// choose asks rng for an index among n > 1 items and folds whatever it
// returns back into [0, n). A nil rng falls back to DefaultChooser.
func choose(rng Chooser, n int) int {
	if rng == nil {
		rng = DefaultChooser()
	}
	i := rng.Choose(n) % n
	if i < 0 {
		i += n
	}
	return i
}
