package markov

// Index builds the adjacency mapping for tokens using partitions of length n.
//
// For every position i where both the window tokens[i:i+n] and the successor
// tokens[i+n] exist, the successor is appended to that window's entry. The
// tail of the sequence that cannot form a full (window, successor) pair adds
// nothing. When n <= 0 or n >= len(tokens) the result is an empty mapping.
//
// tokens is not modified and the returned mapping does not share memory
// with it.
func Index(tokens []string, n int) *Mapping {
	m := newMapping(n)
	if n <= 0 || n >= len(tokens) {
		return m
	}
	for i := 0; i+n < len(tokens); i++ {
		m.add(tokens[i:i+n], tokens[i+n])
	}
	return m
}
