// wordwalk builds word-level Markov chains from stored text corpora and
// random-walks them to generate new text.
//
// Usage:
//
//	wordwalk corpus add <name> <file>...
//	wordwalk generate --corpus <name> [--order 2] [--seed "the cat"] [--max-steps 50]
//	wordwalk stats [--corpus <name> --order 2]
//	wordwalk serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "wordwalk",
	Short: "Random text from word-level Markov chains",
	Long: "wordwalk stores text corpora in SQLite, indexes them into Markov chains of\n" +
		"a chosen order and random-walks those chains to produce new text.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "./config.json", "Path to the config file (.json, .yaml or .yml)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	// Commands stop early on SIGINT/SIGTERM through cmd.Context().
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
