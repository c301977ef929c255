package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CTAG07/wordwalk/pkg/corpus"
	"github.com/CTAG07/wordwalk/pkg/tokenize"
)

// app bundles what a command needs: the loaded config, a logger and, once
// openStore has been called, the database and corpus store.
type app struct {
	config    *Config
	logger    *slog.Logger
	tokenizer *tokenize.Tokenizer
	db        *sql.DB
	store     *corpus.Store
}

// loadApp reads the config named by the persistent flags and builds the
// logger. It does not touch the database.
func loadApp(cmd *cobra.Command) (*app, error) {
	config, err := LoadConfig(rootFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if rootFlags.logLevel != "" {
		config.Server.LogLevel = rootFlags.logLevel
	}

	return &app{
		config:    config,
		logger:    newLogger(cmd.ErrOrStderr(), config.Server.LogLevel),
		tokenizer: config.Tokenizer.NewTokenizer(),
	}, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

// openStore opens the configured database, creating its directory and schema
// when needed.
func (a *app) openStore() error {
	path, query, _ := strings.Cut(a.config.Server.DatabasePath, "?")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	dataSource := path + sqliteParams
	if query != "" {
		dataSource = path + "?" + query
	}

	db, err := initDB(dataSource)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to setup corpus schema: %w", err)
	}

	store, err := corpus.NewStore(db, a.tokenizer)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("error creating corpus store: %w", err)
	}
	store.SetLogger(a.logger)

	a.db = db
	a.store = store
	return nil
}

// Close releases the store and the database, if they were opened.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}
}

// openInput opens a named file, or stdin for "-".
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(name)
}
