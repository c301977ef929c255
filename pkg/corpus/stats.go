package corpus

import (
	"context"
	"sort"
)

// DBStats holds aggregated statistics for the entire database, including a
// list of all corpora and their individual stats.
type DBStats struct {
	Corpora   []Info              // All corpora, ordered by ID
	Stats     map[int]CorpusStats // A mapping of corpus ids to their stats
	VocabSize int                 // The number of unique tokens across all corpora
}

// CorpusStats holds aggregated statistics for a single corpus.
type CorpusStats struct {
	Tokens         int // The length of the token sequence
	DistinctTokens int // The number of unique tokens the corpus uses
}

// GetCorpusStats returns the statistics of a single corpus.
func (s *Store) GetCorpusStats(ctx context.Context, info Info) (CorpusStats, error) {
	var stats CorpusStats
	if err := s.stmtTokenCount.QueryRowContext(ctx, info.Id).Scan(&stats.Tokens); err != nil {
		return CorpusStats{}, err
	}
	if err := s.stmtDistinctTokens.QueryRowContext(ctx, info.Id).Scan(&stats.DistinctTokens); err != nil {
		return CorpusStats{}, err
	}
	return stats, nil
}

// GetStats returns a snapshot of statistics for the entire database,
// including global counts and per-corpus stats.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	infos, err := s.GetCorpusInfos(ctx)
	if err != nil {
		return nil, err
	}

	var vocabLen int
	if err = s.stmtGetVocabLen.QueryRowContext(ctx).Scan(&vocabLen); err != nil {
		return nil, err
	}

	corpora := make([]Info, 0, len(infos))
	corpusStats := make(map[int]CorpusStats)
	for _, info := range infos {
		corpora = append(corpora, info)
		stats, err := s.GetCorpusStats(ctx, info)
		if err != nil {
			return nil, err
		}
		corpusStats[info.Id] = stats
	}
	sort.Slice(corpora, func(i, j int) bool {
		return corpora[i].Id < corpora[j].Id
	})

	return &DBStats{
		Corpora:   corpora,
		Stats:     corpusStats,
		VocabSize: vocabLen,
	}, nil
}
