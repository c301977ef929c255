package corpus

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestDBWithCorpus is a convenience helper that also ingests a default
// corpus.
func setupTestDBWithCorpus(t *testing.T) (context.Context, *Store, Info) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	info := Info{Name: "test_corpus", Source: "inline"}

	if err := s.InsertCorpus(ctx, info); err != nil {
		t.Fatalf("setup: InsertCorpus() failed: %v", err)
	}
	info, err := s.GetCorpusInfo(ctx, info.Name)
	if err != nil {
		t.Fatalf("setup: GetCorpusInfo() failed: %v", err)
	}
	if _, err := s.Ingest(ctx, info, strings.NewReader("The cat sat on the mat. The cat ran!")); err != nil {
		t.Fatalf("setup: Ingest() failed: %v", err)
	}
	return ctx, s, info
}

// catTokens is what setupTestDBWithCorpus stores.
var catTokens = strings.Fields("the cat sat on the mat the cat ran")
