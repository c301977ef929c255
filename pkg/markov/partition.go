package markov

import (
	"strconv"
	"strings"
)

// Partition is an ordered, fixed-length window of tokens. It is used as the
// lookup key of a Mapping; two partitions are equal when they hold the same
// tokens in the same order.
type Partition []string

// Key returns the canonical map key for the partition. Every token is written
// with its byte length in front of it, so tokens may contain spaces or any
// other byte without two different partitions sharing a key.
func (p Partition) Key() string {
	var keyBuf []byte
	for _, token := range p {
		keyBuf = strconv.AppendInt(keyBuf, int64(len(token)), 10)
		keyBuf = append(keyBuf, ':')
		keyBuf = append(keyBuf, token...)
	}
	return string(keyBuf)
}

// Equal reports whether p and other hold the same tokens in the same order.
func (p Partition) Equal(other Partition) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Slide returns a new partition with the oldest token dropped and next
// appended. The receiver is left untouched.
func (p Partition) Slide(next string) Partition {
	slid := make(Partition, 0, max(len(p), 1))
	if len(p) > 0 {
		slid = append(slid, p[1:]...)
	}
	return append(slid, next)
}

// Clone returns a copy of p that shares no memory with it.
func (p Partition) Clone() Partition {
	if p == nil {
		return nil
	}
	c := make(Partition, len(p))
	copy(c, p)
	return c
}

// String joins the tokens with single spaces. It is meant for logs and error
// messages, not as a key.
func (p Partition) String() string {
	return strings.Join(p, " ")
}
