package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CTAG07/wordwalk/pkg/corpus"
	"github.com/CTAG07/wordwalk/pkg/markov"
)

type modelKey struct {
	corpusID int
	order    int
}

// modelCache keeps the mappings built from stored corpora so repeated walks
// over the same corpus and order do not re-read and re-index it. Entries of a
// corpus are dropped whenever its tokens change.
type modelCache struct {
	mu     sync.RWMutex
	models map[modelKey]*markov.Mapping
	// gens counts the invalidations of each corpus. A mapping is only cached
	// if no invalidation happened while it was being built.
	gens   map[int]uint64
	store  *corpus.Store
	logger *slog.Logger
}

func newModelCache(store *corpus.Store, logger *slog.Logger) *modelCache {
	return &modelCache{
		models: make(map[modelKey]*markov.Mapping),
		gens:   make(map[int]uint64),
		store:  store,
		logger: logger,
	}
}

// Get returns the mapping of the given corpus and order, building it on a miss.
func (c *modelCache) Get(ctx context.Context, info corpus.Info, order int) (*markov.Mapping, error) {
	key := modelKey{corpusID: info.Id, order: order}

	c.mu.RLock()
	m, ok := c.models[key]
	gen := c.gens[info.Id]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	start := time.Now()
	tokens, err := c.store.Tokens(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens of corpus '%s': %w", info.Name, err)
	}
	m = markov.Index(tokens, order)

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another request may have built the same mapping meanwhile.
	if existing, ok := c.models[key]; ok {
		return existing, nil
	}
	if c.gens[info.Id] != gen {
		// The corpus changed while the tokens were read; serve this mapping
		// once but don't keep it.
		return m, nil
	}
	c.models[key] = m

	c.logger.DebugContext(ctx, "Mapping built",
		slog.String("corpus_name", info.Name),
		slog.Int("order", order),
		slog.Int("tokens", len(tokens)),
		slog.Int("partitions", m.Len()),
		slog.Duration("took", time.Since(start)),
	)
	return m, nil
}

// Invalidate drops every cached mapping of a corpus.
func (c *modelCache) Invalidate(corpusID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[corpusID]++
	for key := range c.models {
		if key.corpusID == corpusID {
			delete(c.models, key)
		}
	}
}

// Len returns the number of cached mappings.
func (c *modelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}
