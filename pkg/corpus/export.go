package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ExportedCorpus is the serializable representation of a stored corpus, used
// for JSON-based import and export.
type ExportedCorpus struct {
	Name       string         `json:"name"`
	Source     string         `json:"source"`
	Vocabulary map[string]int `json:"vocabulary"` // token_text -> token_id
	Tokens     []int          `json:"tokens"`     // token ids in order
}

// ExportCorpus serializes a corpus into JSON and writes it to w. Only the
// vocabulary entries the corpus uses are included.
func (s *Store) ExportCorpus(ctx context.Context, info Info, w io.Writer) error {
	rows, err := s.stmtCorpusTokenIDs.QueryContext(ctx, info.Id)
	if err != nil {
		return fmt.Errorf("could not query tokens for export: %w", err)
	}

	tokens := make([]int, 0)
	tokenIDs := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		tokens = append(tokens, id)
		tokenIDs[id] = struct{}{}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tokenIDToText := make(map[string]int)
	if len(tokenIDs) > 0 {
		ids := make([]interface{}, 0, len(tokenIDs))
		for id := range tokenIDs {
			ids = append(ids, id)
		}
		// SQLite's default variable limit is 999, so around half that is good
		const batchSize = 500
		for i := 0; i < len(ids); i += batchSize {
			batch := ids[i:min(i+batchSize, len(ids))]
			query := fmt.Sprintf(`SELECT token_id, token_text FROM corpus_vocabulary WHERE token_id IN (?%s)`, strings.Repeat(",?", len(batch)-1))
			vRows, err := s.db.QueryContext(ctx, query, batch...)
			if err != nil {
				return err
			}
			for vRows.Next() {
				var id int
				var text string
				if err := vRows.Scan(&id, &text); err != nil {
					_ = vRows.Close()
					return err
				}
				tokenIDToText[text] = id
			}
			_ = vRows.Close()
			if err := vRows.Err(); err != nil {
				return err
			}
		}
	}

	exported := ExportedCorpus{
		Name:       info.Name,
		Source:     info.Source,
		Vocabulary: tokenIDToText,
		Tokens:     tokens,
	}

	s.logger.InfoContext(ctx, "Corpus exported",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
		slog.Int("vocab_items_exported", len(tokenIDToText)),
		slog.Int("tokens_exported", len(tokens)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportCorpus reads a JSON representation of a corpus from r and stores it.
// If a corpus with the same name already exists, the imported tokens are
// appended to it; otherwise it is created. Vocabulary IDs are re-mapped to
// this database's IDs. The entire operation is transactional.
func (s *Store) ImportCorpus(ctx context.Context, r io.Reader) (Info, error) {
	var imported ExportedCorpus
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return Info{}, fmt.Errorf("failed to decode json corpus: %w", err)
	}
	if imported.Name == "" {
		return Info{}, errors.New("imported corpus has no name")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	info := Info{Name: imported.Name, Source: imported.Source}
	var createdAt int64
	err = tx.QueryRowContext(ctx, "SELECT corpus_id, created_at FROM corpus_texts WHERE corpus_name = ?", imported.Name).Scan(&info.Id, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		createdAt = time.Now().Unix()
		res, err := tx.ExecContext(ctx, "INSERT INTO corpus_texts (corpus_name, source, created_at) VALUES (?, ?, ?)", imported.Name, imported.Source, createdAt)
		if err != nil {
			return Info{}, fmt.Errorf("failed to insert new corpus '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		info.Id = int(newID)
	} else if err != nil {
		return Info{}, fmt.Errorf("failed to query for corpus '%s': %w", imported.Name, err)
	}
	info.CreatedAt = time.Unix(createdAt, 0).UTC()

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	vocabIDMap := make(map[int]int) // old_id -> new_id
	for text, oldID := range imported.Vocabulary {
		var newID int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&newID); err != nil {
			return Info{}, fmt.Errorf("failed to get/insert vocab '%s': %w", text, err)
		}
		vocabIDMap[oldID] = newID
	}

	appender, err := s.newTokenAppender(ctx, tx, info.Id)
	if err != nil {
		return Info{}, err
	}
	for i, oldID := range imported.Tokens {
		newID, ok := vocabIDMap[oldID]
		if !ok {
			return Info{}, fmt.Errorf("import consistency error: token %d (id %d) not found in vocabulary", i, oldID)
		}
		if err := appender.add(newID); err != nil {
			return Info{}, err
		}
	}
	if err := appender.flush(); err != nil {
		return Info{}, err
	}

	s.logger.InfoContext(ctx, "Corpus imported successfully",
		slog.String("corpus_name", imported.Name),
		slog.Int("target_corpus_id", info.Id),
		slog.Int("vocab_items_merged", len(imported.Vocabulary)),
		slog.Int("tokens_appended", appender.count),
	)

	if err := tx.Commit(); err != nil {
		return Info{}, err
	}
	return info, nil
}
