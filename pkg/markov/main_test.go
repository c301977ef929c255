package markov

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

// catTokens is the small corpus used by most tests: with order 1 "the" and
// "cat" branch, every other partition has a single successor and "ran" is a
// dead end.
var catTokens = strings.Fields("the cat sat on the mat the cat ran")

// firstChooser always picks the first successor.
var firstChooser = ChooserFunc(func(int) int { return 0 })

// countingChooser records how often it was consulted and always picks the
// first successor.
type countingChooser struct {
	mu    sync.Mutex
	calls int
	sizes []int
}

func (c *countingChooser) Choose(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.sizes = append(c.sizes, n)
	return 0
}

// panicChooser fails the test if it is ever consulted.
func panicChooser(t testing.TB) Chooser {
	return ChooserFunc(func(n int) int {
		t.Helper()
		t.Fatalf("chooser consulted with n=%d, expected no randomness to be used", n)
		return 0
	})
}

// randomTokens builds a deterministic pseudo-random token sequence over a
// small vocabulary so that partitions repeat often.
func randomTokens(seed uint64, length int, vocab []string) []string {
	r := rand.New(rand.NewPCG(seed, seed))
	tokens := make([]string, length)
	for i := range tokens {
		tokens[i] = vocab[r.IntN(len(vocab))]
	}
	return tokens
}

var (
	benchmarkTokens []string
	tokensOnce      sync.Once
)

// createBenchmarkTokens returns a large token sequence for benchmarks.
func createBenchmarkTokens() []string {
	tokensOnce.Do(func() {
		vocab := strings.Fields("a an the of to in is was it he she they we you and but or not on at by for with from that this")
		benchmarkTokens = randomTokens(42, 200_000, vocab)
	})
	return benchmarkTokens
}
