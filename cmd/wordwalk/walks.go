package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CTAG07/wordwalk/pkg/markov"
	"github.com/CTAG07/wordwalk/pkg/tokenize"
)

// errEmptyMapping is returned when a corpus is too short for the requested
// order, so there is no partition to start from.
var errEmptyMapping = errors.New("corpus has too few tokens for the requested order")

// walkPlan describes a batch of walks over one mapping. It is shared by the
// generate command and the walk API.
type walkPlan struct {
	Seed     string // raw seed text, tokenized before use; empty picks random partitions
	MaxSteps int
	Count    int
	Parallel int
	RandSeed uint64 // 0 means randomly seeded
}

// startChooser picks the random start partitions.
func (p walkPlan) startChooser() markov.Chooser {
	if p.RandSeed == 0 {
		return markov.DefaultChooser()
	}
	return markov.NewRandChooser(p.RandSeed)
}

// walkChooser gives every walk its own source so seeded batches are
// reproducible regardless of scheduling.
func (p walkPlan) walkChooser() func(i int) markov.Chooser {
	if p.RandSeed == 0 {
		return nil
	}
	return func(i int) markov.Chooser {
		return markov.NewRandChooser(p.RandSeed + 1 + uint64(i))
	}
}

// startPartitions returns count start partitions: the seed repeated when one
// is given, random partitions of m otherwise.
func startPartitions(m *markov.Mapping, seed []string, count int, rng markov.Chooser) ([]markov.Partition, error) {
	if count <= 0 {
		count = 1
	}
	starts := make([]markov.Partition, count)

	if len(seed) > 0 {
		if len(seed) != m.Order() {
			return nil, fmt.Errorf("seed has %d tokens but the order is %d", len(seed), m.Order())
		}
		for i := range starts {
			starts[i] = markov.Partition(seed)
		}
		return starts, nil
	}

	for i := range starts {
		p, ok := m.RandomPartition(rng)
		if !ok {
			return nil, errEmptyMapping
		}
		starts[i] = p
	}
	return starts, nil
}

// runWalks resolves the start partitions for plan and walks them in parallel.
func runWalks(ctx context.Context, m *markov.Mapping, tokenizer *tokenize.Tokenizer, plan walkPlan, logger *slog.Logger) ([][]string, error) {
	var seed []string
	if plan.Seed != "" {
		seed = tokenizer.TokenizeString(plan.Seed)
		if len(seed) == 0 {
			return nil, fmt.Errorf("seed %q contains no tokens", plan.Seed)
		}
	}

	starts, err := startPartitions(m, seed, plan.Count, plan.startChooser())
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Starting walks",
		slog.Int("order", m.Order()),
		slog.Int("count", len(starts)),
		slog.Int("max_steps", plan.MaxSteps),
	)
	return markov.WalkMany(ctx, m, starts, plan.walkChooser(), plan.Parallel,
		markov.WithMaxSteps(plan.MaxSteps),
		markov.WithLogger(logger),
	)
}
