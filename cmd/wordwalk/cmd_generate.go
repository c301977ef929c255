package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CTAG07/wordwalk/pkg/markov"
)

var generateFlags struct {
	corpus   string
	file     string
	order    int
	seed     string
	maxSteps int
	count    int
	parallel int
	randSeed uint64
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate text by random-walking a corpus or a text file",
	Long: `Builds the Markov chain of the given order from a stored corpus (--corpus)
or directly from a text file (--file, '-' for stdin) and prints one generated
text per line.

Without --seed every walk starts at a random partition. A seed must contain
exactly --order tokens after tokenization. Walks end at a partition with no
successors or after --max-steps generated tokens; a chain with a cycle and no
dead end only stops through --max-steps.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.corpus, "corpus", "", "Name of a stored corpus")
	f.StringVar(&generateFlags.file, "file", "", "Text file to walk instead of a stored corpus ('-' reads stdin)")
	f.IntVar(&generateFlags.order, "order", 0, "Partition length (default from config)")
	f.StringVar(&generateFlags.seed, "seed", "", "Seed text to start every walk from")
	f.IntVar(&generateFlags.maxSteps, "max-steps", 0, "Stop after this many generated tokens, 0 for no limit (default from config)")
	f.IntVar(&generateFlags.count, "count", 1, "Number of texts to generate")
	f.IntVar(&generateFlags.parallel, "parallel", 0, "Walks to run at once (default from config)")
	f.Uint64Var(&generateFlags.randSeed, "rand-seed", 0, "Seed for reproducible output, 0 for random (default from config)")

	generateCmd.MarkFlagsMutuallyExclusive("corpus", "file")
	generateCmd.MarkFlagsOneRequired("corpus", "file")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	order := a.config.Walk.Order
	if flags.Changed("order") {
		order = generateFlags.order
	}
	if order <= 0 {
		return fmt.Errorf("order must be positive, got %d", order)
	}
	plan := walkPlan{
		Seed:     generateFlags.seed,
		MaxSteps: a.config.Walk.MaxSteps,
		Count:    generateFlags.count,
		Parallel: a.config.Walk.Parallel,
		RandSeed: a.config.Walk.RandSeed,
	}
	if flags.Changed("max-steps") {
		plan.MaxSteps = generateFlags.maxSteps
	}
	if flags.Changed("parallel") {
		plan.Parallel = generateFlags.parallel
	}
	if flags.Changed("rand-seed") {
		plan.RandSeed = generateFlags.randSeed
	}
	if plan.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", plan.Count)
	}

	tokens, err := generateTokens(cmd, a)
	if err != nil {
		return err
	}
	m := markov.Index(tokens, order)

	walks, err := runWalks(cmd.Context(), m, a.tokenizer, plan, a.logger)
	if err != nil {
		if errors.Is(err, errEmptyMapping) {
			return fmt.Errorf("%w: %d tokens, order %d", err, len(tokens), order)
		}
		return err
	}

	out := cmd.OutOrStdout()
	for _, walk := range walks {
		fmt.Fprintln(out, a.tokenizer.Join(walk))
	}
	return nil
}

// generateTokens reads the token sequence to index, from the store or a file.
func generateTokens(cmd *cobra.Command, a *app) ([]string, error) {
	if generateFlags.file != "" {
		r, err := openInput(cmd, generateFlags.file)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", generateFlags.file, err)
		}
		defer func() { _ = r.Close() }()
		return a.tokenizer.Tokenize(r)
	}

	if err := a.openStore(); err != nil {
		return nil, err
	}
	info, err := a.store.GetCorpusInfo(cmd.Context(), generateFlags.corpus)
	if err != nil {
		return nil, fmt.Errorf("look up corpus %q: %w", generateFlags.corpus, err)
	}
	return a.store.Tokens(cmd.Context(), info)
}
