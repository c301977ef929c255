package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CTAG07/wordwalk/pkg/corpus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestStore opens a fresh SQLite database in a temp dir with the corpus
// schema and a store on top of it.
func setupTestStore(t *testing.T) *corpus.Store {
	t.Helper()
	db, err := initDB(filepath.Join(t.TempDir(), "test.db") + sqliteParams)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, corpus.SetupSchema(db))
	store, err := corpus.NewStore(db, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

// setupTestServer starts the API on an httptest server backed by a fresh
// database.
func setupTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	config := DefaultConfig()
	server := NewServer(config, setupTestStore(t), discardLogger())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, server
}

// ingestTestCorpus creates a corpus holding text and returns its info.
func ingestTestCorpus(t *testing.T, store *corpus.Store, name, text string) corpus.Info {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InsertCorpus(ctx, corpus.Info{Name: name, Source: "test"}))
	info, err := store.GetCorpusInfo(ctx, name)
	require.NoError(t, err)
	_, err = store.Ingest(ctx, info, strings.NewReader(text))
	require.NoError(t, err)
	return info
}
