package corpus

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/CTAG07/wordwalk/pkg/markov"
)

func TestExportImportCorpus(t *testing.T) {
	ctx, s1, info1 := setupTestDBWithCorpus(t)

	var buf bytes.Buffer
	if err := s1.ExportCorpus(ctx, info1, &buf); err != nil {
		t.Fatalf("ExportCorpus() failed: %v", err)
	}

	var exported ExportedCorpus
	if err := json.Unmarshal(buf.Bytes(), &exported); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if exported.Name != info1.Name || len(exported.Tokens) != len(catTokens) || len(exported.Vocabulary) != 6 {
		t.Errorf("unexpected export contents: name=%q tokens=%d vocab=%d",
			exported.Name, len(exported.Tokens), len(exported.Vocabulary))
	}

	// Create a new, separate database that already has unrelated vocabulary,
	// so that imported ids have to be re-mapped.
	_, s2 := setupTestDB(t)
	_ = s2.InsertCorpus(ctx, Info{Name: "unrelated"})
	unrelated, _ := s2.GetCorpusInfo(ctx, "unrelated")
	_, _ = s2.Ingest(ctx, unrelated, strings.NewReader("zebra yak xylophone mat"))

	imported, err := s2.ImportCorpus(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ImportCorpus() failed: %v", err)
	}
	if imported.Name != info1.Name || imported.Source != info1.Source {
		t.Errorf("unexpected imported info: %+v", imported)
	}

	tokens, err := s2.Tokens(ctx, imported)
	if err != nil {
		t.Fatalf("Tokens() failed: %v", err)
	}
	if diff := cmp.Diff(catTokens, tokens); diff != "" {
		t.Errorf("imported tokens mismatch (-want +got):\n%s", diff)
	}

	// The rebuilt mapping is identical to one built from the original tokens.
	want := markov.Index(catTokens, 2).Stats()
	got := markov.Index(tokens, 2).Stats()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mapping stats mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCorpusAppends(t *testing.T) {
	ctx, s, info := setupTestDBWithCorpus(t)

	var buf bytes.Buffer
	if err := s.ExportCorpus(ctx, info, &buf); err != nil {
		t.Fatalf("ExportCorpus() failed: %v", err)
	}

	// Importing into the same database appends to the existing corpus.
	imported, err := s.ImportCorpus(ctx, &buf)
	if err != nil {
		t.Fatalf("ImportCorpus() failed: %v", err)
	}
	if imported.Id != info.Id {
		t.Errorf("expected the import to target corpus %d, got %d", info.Id, imported.Id)
	}

	tokens, _ := s.Tokens(ctx, info)
	want := append(append([]string{}, catTokens...), catTokens...)
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens after append mismatch (-want +got):\n%s", diff)
	}
}

func TestExportEmptyCorpus(t *testing.T) {
	_, s, _ := setupTestDBWithCorpus(t)
	ctx := t.Context()

	_ = s.InsertCorpus(ctx, Info{Name: "empty"})
	empty, _ := s.GetCorpusInfo(ctx, "empty")

	var buf bytes.Buffer
	if err := s.ExportCorpus(ctx, empty, &buf); err != nil {
		t.Fatalf("ExportCorpus() failed: %v", err)
	}
	var exported ExportedCorpus
	if err := json.Unmarshal(buf.Bytes(), &exported); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if len(exported.Tokens) != 0 || len(exported.Vocabulary) != 0 {
		t.Errorf("expected an empty export, got %+v", exported)
	}
}

func TestImportCorpusErrors(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := t.Context()

	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", `{"name": "broken"`},
		{"missing name", `{"vocabulary": {"a": 1}, "tokens": [1]}`},
		{"unknown token id", `{"name": "bad", "vocabulary": {"a": 1}, "tokens": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ImportCorpus(ctx, strings.NewReader(tt.input)); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}

	// A failed import leaves nothing behind.
	corpora, err := s.GetCorpusInfos(ctx)
	if err != nil {
		t.Fatalf("GetCorpusInfos() failed: %v", err)
	}
	if len(corpora) != 0 {
		t.Errorf("expected no corpora after failed imports, got %v", corpora)
	}
}
