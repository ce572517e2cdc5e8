package delta

import (
	"github.com/treedelta/treedelta/tree"
)

// DefaultRadius is the fingerprint window radius k.
const DefaultRadius = 4

// ContextGenerator builds head/tail fingerprints around anchor
// positions of one document-order index.
type ContextGenerator struct {
	index  *tree.DocumentOrderIndex
	hashes *tree.NodeHashIndex
	radius int
}

// NewContextGenerator builds fingerprints of the given radius over
// idx using the per-family node-hash cache.
func NewContextGenerator(idx *tree.DocumentOrderIndex, hashes *tree.NodeHashIndex, radius int) *ContextGenerator {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &ContextGenerator{index: idx, hashes: hashes, radius: radius}
}

// Radius returns the window radius k.
func (g *ContextGenerator) Radius() int { return g.radius }

// Head returns the hashes of the radius nodes preceding pos in
// document order. Out-of-bounds slots are zero, as are ancestors of
// the anchor slot: they are already pinned by the path.
func (g *ContextGenerator) Head(base *tree.Node, pos int) []uint32 {
	out := make([]uint32, g.radius)
	for i := 0; i < g.radius; i++ {
		n := g.index.Node(pos - g.radius + i)
		if n == nil || g.isAnchorAncestor(n, base) {
			continue
		}
		out[i] = g.hashes.Get(n)
	}
	return out
}

// Tail returns the hashes of the radius nodes starting at pos+skip,
// where skip covers the nodes the operation removes: the tail
// fingerprints content that survives application.
func (g *ContextGenerator) Tail(pos, skip int) []uint32 {
	out := make([]uint32, g.radius)
	for i := 0; i < g.radius; i++ {
		n := g.index.Node(pos + skip + i)
		if n == nil {
			continue
		}
		out[i] = g.hashes.Get(n)
	}
	return out
}

func (g *ContextGenerator) isAnchorAncestor(n, base *tree.Node) bool {
	return base != nil && (n == base || base.HasAncestor(n))
}
