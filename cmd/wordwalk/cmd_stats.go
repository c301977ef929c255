package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/CTAG07/wordwalk/pkg/markov"
)

var statsFlags struct {
	corpus string
	order  int
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics, or the chain statistics of one corpus",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	f := statsCmd.Flags()
	f.StringVar(&statsFlags.corpus, "corpus", "", "Show the chain built from this corpus")
	f.IntVar(&statsFlags.order, "order", 0, "Partition length for --corpus (default from config)")
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if statsFlags.corpus == "" {
		stats, err := a.store.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		fmt.Fprintf(out, "Corpora:    %d\n", len(stats.Corpora))
		fmt.Fprintf(out, "Vocabulary: %s tokens\n", humanize.Comma(int64(stats.VocabSize)))
		for _, info := range stats.Corpora {
			cs := stats.Stats[info.Id]
			fmt.Fprintf(out, "  %-20s %12s tokens %10s distinct\n",
				info.Name, humanize.Comma(int64(cs.Tokens)), humanize.Comma(int64(cs.DistinctTokens)))
		}
		return nil
	}

	order := a.config.Walk.Order
	if cmd.Flags().Changed("order") {
		order = statsFlags.order
	}
	if order <= 0 {
		return fmt.Errorf("order must be positive, got %d", order)
	}

	info, err := a.store.GetCorpusInfo(ctx, statsFlags.corpus)
	if err != nil {
		return fmt.Errorf("look up corpus %q: %w", statsFlags.corpus, err)
	}
	tokens, err := a.store.Tokens(ctx, info)
	if err != nil {
		return err
	}
	s := markov.Index(tokens, order).Stats()

	fmt.Fprintf(out, "Corpus:               %s (%s, added %s)\n", info.Name, info.Source, humanize.Time(info.CreatedAt))
	fmt.Fprintf(out, "Tokens:               %s\n", humanize.Comma(int64(len(tokens))))
	fmt.Fprintf(out, "Order:                %d\n", s.Order)
	fmt.Fprintf(out, "Partitions:           %s\n", humanize.Comma(int64(s.Partitions)))
	fmt.Fprintf(out, "Transitions:          %s (%s distinct)\n", humanize.Comma(int64(s.Transitions)), humanize.Comma(int64(s.DistinctTransitions)))
	fmt.Fprintf(out, "Branching partitions: %s\n", humanize.Comma(int64(s.BranchingPartitions)))
	fmt.Fprintf(out, "Max fan-out:          %d\n", s.MaxFanOut)
	fmt.Fprintf(out, "Dead ends:            %s\n", humanize.Comma(int64(s.DeadEnds)))
	return nil
}
