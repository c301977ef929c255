package markov

import "iter"

// Mapping is the adjacency model built by Index: it maps every observed
// partition to the ordered list of tokens that followed it in the source.
// Successor lists keep every duplicate and are never empty.
//
// A Mapping is not modified after Index returns, so it is safe to read from
// many goroutines at once.
type Mapping struct {
	order   int
	keys    map[string]int // partition key -> index into entries
	entries []mappingEntry // first-seen order
}

type mappingEntry struct {
	partition  Partition
	successors []string
}

func newMapping(order int) *Mapping {
	return &Mapping{
		order: order,
		keys:  make(map[string]int),
	}
}

// add appends next to the successors of window, creating the entry the first
// time the window is seen. window is copied.
func (m *Mapping) add(window []string, next string) {
	key := Partition(window).Key()
	if i, ok := m.keys[key]; ok {
		m.entries[i].successors = append(m.entries[i].successors, next)
		return
	}
	m.keys[key] = len(m.entries)
	m.entries = append(m.entries, mappingEntry{
		partition:  Partition(window).Clone(),
		successors: []string{next},
	})
}

// successors returns the stored successor list of p without copying it.
// Callers inside the package must not modify the result.
func (m *Mapping) successors(p Partition) []string {
	if m == nil {
		return nil
	}
	i, ok := m.keys[p.Key()]
	if !ok {
		return nil
	}
	return m.entries[i].successors
}

// Successors returns a copy of the tokens observed after p. An unseen
// partition yields an empty result, never an error.
func (m *Mapping) Successors(p Partition) []string {
	s := m.successors(p)
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Contains reports whether p was observed as a partition.
func (m *Mapping) Contains(p Partition) bool {
	return len(m.successors(p)) > 0
}

// Order returns the partition length the mapping was built with.
func (m *Mapping) Order() int {
	if m == nil {
		return 0
	}
	return m.order
}

// Len returns the number of distinct partitions.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Partition returns a copy of the i-th partition in first-seen order.
// It panics if i is out of range, like a slice index.
func (m *Mapping) Partition(i int) Partition {
	return m.entries[i].partition.Clone()
}

// Partitions returns copies of all partitions in first-seen order.
func (m *Mapping) Partitions() []Partition {
	out := make([]Partition, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		out = append(out, m.Partition(i))
	}
	return out
}

// All iterates over every partition and its successors in first-seen order.
// The yielded values are copies.
func (m *Mapping) All() iter.Seq2[Partition, []string] {
	return func(yield func(Partition, []string) bool) {
		for i := 0; i < m.Len(); i++ {
			e := m.entries[i]
			succ := make([]string, len(e.successors))
			copy(succ, e.successors)
			if !yield(e.partition.Clone(), succ) {
				return
			}
		}
	}
}

// RandomPartition picks a partition uniformly at random, which is how a walk
// seed is normally chosen. It returns false for an empty mapping. With a
// single partition no randomness is consumed.
func (m *Mapping) RandomPartition(rng Chooser) (Partition, bool) {
	switch n := m.Len(); n {
	case 0:
		return nil, false
	case 1:
		return m.Partition(0), true
	default:
		return m.Partition(choose(rng, n)), true
	}
}
