package corpus

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/wordwalk/pkg/tokenize"
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS corpus_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaTexts = `
CREATE TABLE IF NOT EXISTS corpus_texts (
    corpus_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT 0
);
`
		schemaTokens = `
CREATE TABLE IF NOT EXISTS corpus_tokens (
    corpus_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    token_id INTEGER NOT NULL,
    PRIMARY KEY (corpus_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaTexts); err != nil {
		return fmt.Errorf("could not create texts schema: %w", err)
	}

	if _, err = tx.Exec(schemaTokens); err != nil {
		return fmt.Errorf("could not create tokens schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store is the entry point for reading and writing corpora. It holds the
// database connection, the tokenizer used for ingestion and prepared SQL
// statements.
type Store struct {
	db                 *sql.DB
	tokenizer          *tokenize.Tokenizer
	stmtGetCorpusInfo  *sql.Stmt
	stmtGetCorpora     *sql.Stmt
	stmtAddCorpus      *sql.Stmt
	stmtLastPosition   *sql.Stmt
	stmtCorpusTokens   *sql.Stmt
	stmtCorpusTokenIDs *sql.Stmt
	stmtTokenCount     *sql.Stmt
	stmtDistinctTokens *sql.Stmt
	stmtGetTokenID     *sql.Stmt
	stmtGetTokenText   *sql.Stmt
	stmtGetVocabLen    *sql.Stmt
	stmtInsertVocab    *sql.Stmt
	stmtInsertToken    *sql.Stmt
	logger             *slog.Logger
}

// NewStore creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails. A nil tokenizer
// means tokenize.New() with default rules.
func NewStore(db *sql.DB, tokenizer *tokenize.Tokenizer) (*Store, error) {
	if tokenizer == nil {
		tokenizer = tokenize.New()
	}

	s := &Store{
		db:        db,
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&s.stmtGetCorpusInfo, `SELECT corpus_id, source, created_at FROM corpus_texts WHERE corpus_name = ?;`},
		{&s.stmtGetCorpora, `SELECT corpus_id, corpus_name, source, created_at FROM corpus_texts ORDER BY corpus_id;`},
		{&s.stmtAddCorpus, `INSERT INTO corpus_texts (corpus_name, source, created_at) VALUES (?, ?, ?);`},
		{&s.stmtLastPosition, `SELECT coalesce(MAX(position), -1) FROM corpus_tokens WHERE corpus_id = ?;`},
		{&s.stmtCorpusTokens, `SELECT v.token_text FROM corpus_tokens t JOIN corpus_vocabulary v ON v.token_id = t.token_id WHERE t.corpus_id = ? ORDER BY t.position;`},
		{&s.stmtCorpusTokenIDs, `SELECT token_id FROM corpus_tokens WHERE corpus_id = ? ORDER BY position;`},
		{&s.stmtTokenCount, `SELECT COUNT(*) FROM corpus_tokens WHERE corpus_id = ?;`},
		{&s.stmtDistinctTokens, `SELECT COUNT(DISTINCT token_id) FROM corpus_tokens WHERE corpus_id = ?;`},
		{&s.stmtGetTokenID, `SELECT token_id FROM corpus_vocabulary WHERE token_text = ?;`},
		{&s.stmtGetTokenText, `SELECT token_text FROM corpus_vocabulary WHERE token_id = ?;`},
		{&s.stmtGetVocabLen, `SELECT COUNT(*) FROM corpus_vocabulary;`},
		{&s.stmtInsertVocab, `INSERT INTO corpus_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`},
		{&s.stmtInsertToken, `INSERT INTO corpus_tokens (corpus_id, position, token_id) VALUES (?, ?, ?);`},
	}

	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement %q: %w", st.query, err)
		}
		*st.stmt = stmt
	}

	return s, nil
}

// Close releases all prepared SQL statements held by the Store. It does not
// close the database.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetCorpusInfo,
		s.stmtGetCorpora,
		s.stmtAddCorpus,
		s.stmtLastPosition,
		s.stmtCorpusTokens,
		s.stmtCorpusTokenIDs,
		s.stmtTokenCount,
		s.stmtDistinctTokens,
		s.stmtGetTokenID,
		s.stmtGetTokenText,
		s.stmtGetVocabLen,
		s.stmtInsertVocab,
		s.stmtInsertToken,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Tokenizer returns the tokenizer used for ingestion.
func (s *Store) Tokenizer() *tokenize.Tokenizer {
	return s.tokenizer
}
