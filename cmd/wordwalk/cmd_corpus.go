package main

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/CTAG07/wordwalk/pkg/corpus"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage stored text corpora",
}

var corpusAddFlags struct {
	source string
}

var corpusAddCmd = &cobra.Command{
	Use:   "add <name> <file>...",
	Short: "Create a corpus if needed and append the text of the given files ('-' reads stdin)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCorpusAdd,
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored corpora",
	Args:  cobra.NoArgs,
	RunE:  runCorpusList,
}

var corpusRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a corpus and its tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusRm,
}

var corpusExportFlags struct {
	output string
}

var corpusExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Write a corpus as JSON to stdout or a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusExport,
}

var corpusImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON corpus export, appending to an existing corpus of the same name",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusImport,
}

var corpusPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete vocabulary entries no corpus uses any more",
	Args:  cobra.NoArgs,
	RunE:  runCorpusPrune,
}

func init() {
	corpusAddCmd.Flags().StringVar(&corpusAddFlags.source, "source", "", "Source description stored with a new corpus (default: the first file name)")
	corpusExportCmd.Flags().StringVarP(&corpusExportFlags.output, "output", "o", "", "Output file (default: stdout)")

	corpusCmd.AddCommand(corpusAddCmd)
	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusRmCmd)
	corpusCmd.AddCommand(corpusExportCmd)
	corpusCmd.AddCommand(corpusImportCmd)
	corpusCmd.AddCommand(corpusPruneCmd)
}

// openStoreApp loads the config and opens the corpus store.
func openStoreApp(cmd *cobra.Command) (*app, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, err
	}
	if err = a.openStore(); err != nil {
		return nil, err
	}
	return a, nil
}

func runCorpusAdd(cmd *cobra.Command, args []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	name, files := args[0], args[1:]

	info, err := a.store.GetCorpusInfo(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		source := corpusAddFlags.source
		if source == "" {
			source = filepath.Base(files[0])
		}
		if err = a.store.InsertCorpus(ctx, corpus.Info{Name: name, Source: source}); err != nil {
			return fmt.Errorf("create corpus: %w", err)
		}
		info, err = a.store.GetCorpusInfo(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("look up corpus: %w", err)
	}

	total := 0
	for _, file := range files {
		r, err := openInput(cmd, file)
		if err != nil {
			return fmt.Errorf("open %s: %w", file, err)
		}
		added, err := a.store.Ingest(ctx, info, r)
		_ = r.Close()
		if err != nil {
			return fmt.Errorf("ingest %s: %w", file, err)
		}
		total += added
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s tokens to corpus %q\n", humanize.Comma(int64(total)), name)
	return nil
}

func runCorpusList(cmd *cobra.Command, _ []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	corpora, err := a.store.GetCorpusInfos(cmd.Context())
	if err != nil {
		return fmt.Errorf("list corpora: %w", err)
	}
	names := make([]string, 0, len(corpora))
	for name := range corpora {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No corpora stored. Add one with 'wordwalk corpus add'.")
		return nil
	}
	for _, name := range names {
		info := corpora[name]
		fmt.Fprintf(out, "%-20s  %-30s  added %s\n", info.Name, info.Source, humanize.Time(info.CreatedAt))
	}
	return nil
}

func runCorpusRm(cmd *cobra.Command, args []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.store.GetCorpusInfo(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("look up corpus %q: %w", args[0], err)
	}
	if err = a.store.RemoveCorpus(cmd.Context(), info); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed corpus %q\n", info.Name)
	return nil
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.store.GetCorpusInfo(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("look up corpus %q: %w", args[0], err)
	}

	if corpusExportFlags.output == "" {
		return a.store.ExportCorpus(cmd.Context(), info, cmd.OutOrStdout())
	}

	var buf bytes.Buffer
	if err = a.store.ExportCorpus(cmd.Context(), info, &buf); err != nil {
		return err
	}
	if err = atomic.WriteFile(corpusExportFlags.output, &buf); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := openInput(cmd, args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer func() { _ = r.Close() }()

	info, err := a.store.ImportCorpus(cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported corpus %q\n", info.Name)
	return nil
}

func runCorpusPrune(cmd *cobra.Command, _ []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.store.VocabularyPrune(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s unused vocabulary entries\n", humanize.Comma(removed))
	return nil
}
