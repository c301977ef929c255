// Package tokenize splits text into normalized word tokens for the markov
// package and joins generated tokens back into text.
//
// The default rules turn hyphens into spaces, split on whitespace, strip
// ASCII punctuation from both ends of every word and lower-case it. Words
// that are nothing but punctuation are dropped unless WithKeepEmpty is set.
package tokenize

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode"
)

// Punctuation is the default set of characters stripped from both ends of a
// word.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// maxLineLength bounds a single input line. Longer lines fail with
// bufio.ErrTooLong rather than being split mid-word.
const maxLineLength = 1 << 20

// Tokenizer holds the normalization rules. The zero value is not usable; use
// New.
type Tokenizer struct {
	splitHyphens bool
	caseFold     bool
	keepEmpty    bool
	trimSet      string
	separator    string
}

// Option is a function that configures a Tokenizer.
type Option func(*Tokenizer)

// WithHyphenSplit sets whether hyphens separate words.
// Default: true
func WithHyphenSplit(split bool) Option {
	return func(t *Tokenizer) {
		t.splitHyphens = split
	}
}

// WithCaseFold sets whether tokens are lower-cased.
// Default: true
func WithCaseFold(fold bool) Option {
	return func(t *Tokenizer) {
		t.caseFold = fold
	}
}

// WithKeepEmpty keeps words that become empty after trimming (for example a
// lone "--" or "...") as empty tokens instead of dropping them.
// Default: false
func WithKeepEmpty(keep bool) Option {
	return func(t *Tokenizer) {
		t.keepEmpty = keep
	}
}

// WithTrimSet sets the characters stripped from both ends of every word, in
// addition to whitespace.
// Default: Punctuation
func WithTrimSet(set string) Option {
	return func(t *Tokenizer) {
		t.trimSet = set
	}
}

// WithSeparator sets the string placed between tokens by Join.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *Tokenizer) {
		t.separator = sep
	}
}

// New creates a tokenizer with default settings, which can be overridden by
// providing one or more Option functions.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		splitHyphens: true,
		caseFold:     true,
		keepEmpty:    false,
		trimSet:      Punctuation,
		separator:    " ",
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Normalize applies the trimming and case folding rules to a single word.
// It does not split on hyphens or whitespace.
func (t *Tokenizer) Normalize(word string) string {
	word = strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(t.trimSet, r)
	})
	if t.caseFold {
		word = strings.ToLower(word)
	}
	return word
}

// NewStream returns a stream reading tokens from r.
func (t *Tokenizer) NewStream(r io.Reader) *Stream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &Stream{
		tokenizer: t,
		scanner:   scanner,
	}
}

// Tokenize reads all of r and returns its tokens in order.
func (t *Tokenizer) Tokenize(r io.Reader) ([]string, error) {
	stream := t.NewStream(r)
	var tokens []string
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, token)
	}
}

// TokenizeString is Tokenize over a string.
func (t *Tokenizer) TokenizeString(s string) []string {
	// Reading from a strings.Reader only fails for lines over maxLineLength.
	tokens, _ := t.Tokenize(strings.NewReader(s))
	return tokens
}

// Join renders tokens as text using the configured separator.
func (t *Tokenizer) Join(tokens []string) string {
	return strings.Join(tokens, t.separator)
}

// Stream is a stateful tokenizer over an io.Reader that returns one token at a
// time.
type Stream struct {
	tokenizer *Tokenizer
	scanner   *bufio.Scanner
	buffer    []string
}

// Next returns the next token. When the stream is exhausted it returns "" and
// io.EOF. Any other error comes from reading the underlying reader.
func (s *Stream) Next() (string, error) {
	for len(s.buffer) == 0 { // Loop until we have tokens
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		s.buffer = s.splitLine(s.scanner.Text())
	}

	token := s.buffer[0]
	s.buffer = s.buffer[1:]
	return token, nil
}

func (s *Stream) splitLine(line string) []string {
	t := s.tokenizer
	if t.splitHyphens {
		line = strings.ReplaceAll(line, "-", " ")
	}
	words := strings.Fields(line)
	tokens := words[:0]
	for _, word := range words {
		word = t.Normalize(word)
		if word == "" && !t.keepEmpty {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}
