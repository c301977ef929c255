package markov

// Stats holds aggregated statistics for a Mapping.
type Stats struct {
	Order               int `json:"order"`                // The partition length
	Partitions          int `json:"partitions"`           // The number of distinct partitions
	Transitions         int `json:"transitions"`          // The sum of all successor list lengths; one per indexed position
	DistinctTransitions int `json:"distinct_transitions"` // The number of unique partition->successor pairs
	BranchingPartitions int `json:"branching_partitions"` // Partitions with more than one distinct successor
	MaxFanOut           int `json:"max_fan_out"`          // The largest number of distinct successors of a single partition
	DeadEnds            int `json:"dead_ends"`            // Distinct partitions reachable by a slide that have no successors
}

// Stats walks the whole mapping once and returns its statistics.
func (m *Mapping) Stats() Stats {
	stats := Stats{
		Order:      m.Order(),
		Partitions: m.Len(),
	}
	deadEnds := make(map[string]struct{})

	for i := 0; i < m.Len(); i++ {
		e := m.entries[i]
		stats.Transitions += len(e.successors)

		distinct := make(map[string]struct{}, len(e.successors))
		for _, next := range e.successors {
			if _, seen := distinct[next]; seen {
				continue
			}
			distinct[next] = struct{}{}

			slid := e.partition.Slide(next)
			key := slid.Key()
			if _, ok := m.keys[key]; !ok {
				deadEnds[key] = struct{}{}
			}
		}

		stats.DistinctTransitions += len(distinct)
		if len(distinct) > 1 {
			stats.BranchingPartitions++
		}
		if len(distinct) > stats.MaxFanOut {
			stats.MaxFanOut = len(distinct)
		}
	}
	stats.DeadEnds = len(deadEnds)

	return stats
}
