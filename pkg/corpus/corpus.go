package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Info holds the metadata of a stored corpus: its unique ID, its name and
// where its text came from.
type Info struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// GetCorpusInfos retrieves metadata for all corpora currently in the database,
// returning them in a map keyed by corpus name.
func (s *Store) GetCorpusInfos(ctx context.Context) (map[string]Info, error) {
	rows, err := s.stmtGetCorpora.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	corpora := make(map[string]Info)
	for rows.Next() {
		var info Info
		var createdAt int64
		if err = rows.Scan(&info.Id, &info.Name, &info.Source, &createdAt); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(createdAt, 0).UTC()
		corpora[info.Name] = info
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return corpora, nil
}

// GetCorpusInfo retrieves the metadata for a single corpus specified by name.
// It returns sql.ErrNoRows if no such corpus exists.
func (s *Store) GetCorpusInfo(ctx context.Context, name string) (Info, error) {
	info := Info{Name: name}
	var createdAt int64
	err := s.stmtGetCorpusInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.Source, &createdAt)
	if err != nil {
		return Info{}, err
	}
	info.CreatedAt = time.Unix(createdAt, 0).UTC()
	return info, nil
}

// InsertCorpus creates a new, empty corpus entry in the database. Names are
// unique; inserting a duplicate name fails.
func (s *Store) InsertCorpus(ctx context.Context, info Info) error {
	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.stmtAddCorpus.ExecContext(ctx, info.Name, info.Source, createdAt.Unix())
	return err
}

// RemoveCorpus deletes a corpus and all of its tokens from the database. The
// operation is performed within a transaction. Vocabulary entries are shared
// between corpora and are left in place; see VocabularyPrune.
func (s *Store) RemoveCorpus(ctx context.Context, info Info) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM corpus_tokens WHERE corpus_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove tokens for corpus %d: %w", info.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM corpus_texts WHERE corpus_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove corpus %d: %w", info.Id, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal of corpus %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Corpus removed successfully",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
	)
	return nil
}

// Ingest tokenizes the text read from data and appends the tokens to the end
// of the corpus. It returns the number of tokens added. The entire operation
// is performed within a single database transaction.
func (s *Store) Ingest(ctx context.Context, info Info, data io.Reader) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	// All transaction-specific statements will also be closed with this or the .Commit()
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	appender, err := s.newTokenAppender(ctx, tx, info.Id)
	if err != nil {
		return 0, err
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	vocabCache := make(map[string]int)

	stream := s.tokenizer.NewStream(data)
	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("tokenizer error: %w", err)
		}

		tokenID, ok := vocabCache[token]
		if !ok {
			if err = stmtInsertVocab.QueryRowContext(ctx, token).Scan(&tokenID); err != nil {
				return 0, fmt.Errorf("sql insert vocabulary error for token '%s': %w", token, err)
			}
			vocabCache[token] = tokenID
		}

		if err = appender.add(tokenID); err != nil {
			return 0, err
		}
	}

	if err = appender.flush(); err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Ingestion completed",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
		slog.Int("tokens_ingested", appender.count),
		slog.Int("distinct_tokens_seen", len(vocabCache)),
	)

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return appender.count, nil
}

// Tokens returns the full token sequence of a corpus in order.
func (s *Store) Tokens(ctx context.Context, info Info) ([]string, error) {
	rows, err := s.stmtCorpusTokens.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query tokens for corpus %d: %w", info.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var tokens []string
	for rows.Next() {
		var token string
		if err = rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// VocabStr looks up a token string in the vocabulary and returns its
// corresponding ID. It returns an error if the token is not found.
func (s *Store) VocabStr(ctx context.Context, token string) (int, error) {
	var tokenId int
	err := s.stmtGetTokenID.QueryRowContext(ctx, token).Scan(&tokenId)
	if err != nil {
		return 0, err
	}
	return tokenId, nil
}

// VocabInt looks up a token ID in the vocabulary and returns its
// corresponding text. It returns an error if the ID is not found.
func (s *Store) VocabInt(ctx context.Context, id int) (string, error) {
	var tokenText string
	err := s.stmtGetTokenText.QueryRowContext(ctx, id).Scan(&tokenText)
	if err != nil {
		return "", err
	}
	return tokenText, nil
}

// tokenAppender buffers token IDs and writes them after the current end of a
// corpus inside a transaction.
type tokenAppender struct {
	ctx      context.Context
	stmt     *sql.Stmt
	corpusID int
	position int
	batch    []int
	count    int
}

// tokenBatchSize determines how many token rows are buffered in memory before being written in one go.
const tokenBatchSize = 1000

func (s *Store) newTokenAppender(ctx context.Context, tx *sql.Tx, corpusID int) (*tokenAppender, error) {
	var last int
	if err := tx.StmtContext(ctx, s.stmtLastPosition).QueryRowContext(ctx, corpusID).Scan(&last); err != nil {
		return nil, fmt.Errorf("could not get last token position for corpus %d: %w", corpusID, err)
	}
	return &tokenAppender{
		ctx:      ctx,
		stmt:     tx.StmtContext(ctx, s.stmtInsertToken),
		corpusID: corpusID,
		position: last + 1,
		batch:    make([]int, 0, tokenBatchSize),
	}, nil
}

func (a *tokenAppender) add(tokenID int) error {
	a.batch = append(a.batch, tokenID)
	if len(a.batch) >= tokenBatchSize {
		return a.flush()
	}
	return nil
}

func (a *tokenAppender) flush() error {
	for _, tokenID := range a.batch {
		if _, err := a.stmt.ExecContext(a.ctx, a.corpusID, a.position, tokenID); err != nil {
			return fmt.Errorf("failed during batch insert of token %d at position %d: %w", tokenID, a.position, err)
		}
		a.position++
		a.count++
	}
	a.batch = a.batch[:0]
	return nil
}
