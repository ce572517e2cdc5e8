// Package match pairs the nodes of two trees. Matching is the
// symmetric partner map both the differ and the delta editor work
// from; xcc.go builds one.
package match

import (
	"errors"
	"fmt"

	"github.com/treedelta/treedelta/tree"
)

// ErrAlreadyMatched is returned when a pair is inserted and either
// node already has a partner.
var ErrAlreadyMatched = errors.New("match: node already matched")

// Matching is a symmetric bijection between the nodes of two trees:
// if Partner(a) == b then Partner(b) == a. Matchings are mutated only
// by the algorithm that builds them; readers never modify them.
type Matching struct {
	partners map[*tree.Node]*tree.Node
}

// NewMatching returns an empty matching.
func NewMatching() *Matching {
	return &Matching{partners: map[*tree.Node]*tree.Node{}}
}

// Put pairs a with b. It fails if either node is already paired.
func (m *Matching) Put(a, b *tree.Node) error {
	if _, ok := m.partners[a]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyMatched, a.Value)
	}
	if _, ok := m.partners[b]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyMatched, b.Value)
	}
	m.partners[a] = b
	m.partners[b] = a
	return nil
}

// Partner returns n's partner, nil if n is unmatched.
func (m *Matching) Partner(n *tree.Node) *tree.Node {
	return m.partners[n]
}

// IsMatched reports whether n has a partner.
func (m *Matching) IsMatched(n *tree.Node) bool {
	_, ok := m.partners[n]
	return ok
}

// Len returns the number of matched pairs.
func (m *Matching) Len() int {
	return len(m.partners) / 2
}
