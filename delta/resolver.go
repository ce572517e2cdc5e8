package delta

import (
	"fmt"

	"github.com/treedelta/treedelta/tree"
)

// DefaultSearchRadius bounds how far, in document-order positions,
// the windowed search strays from an operation's stored path.
const DefaultSearchRadius = 64

// Resolver locates operation anchors in a target tree that need not
// be identical to the tree the operations were derived from. A fast
// path follows the stored path and accepts on a strict fingerprint
// match; otherwise candidate positions around the path are scored by
// their context windows and the best survivor wins.
type Resolver struct {
	root         *tree.Node
	index        *tree.DocumentOrderIndex
	hashes       *tree.NodeHashIndex
	searchRadius int
}

// NewResolver indexes the target tree rooted at root. searchRadius
// <= 0 selects DefaultSearchRadius.
func NewResolver(root *tree.Node, hasher tree.NodeHasher, searchRadius int) *Resolver {
	if searchRadius <= 0 {
		searchRadius = DefaultSearchRadius
	}
	idx := tree.NewDocumentOrderIndex(root)
	idx.BuildAll()
	return &Resolver{
		root:         root,
		index:        idx,
		hashes:       tree.NewNodeHashIndex(hasher),
		searchRadius: searchRadius,
	}
}

// Index exposes the resolver's document-order index of the target.
func (r *Resolver) Index() *tree.DocumentOrderIndex { return r.index }

// Resolve binds op to an anchor in the target tree.
func (r *Resolver) Resolve(op *Operation) (*AttachedOperation, error) {
	if anchor, ok := r.anchorAtPath(op); ok {
		if r.preconditionHolds(anchor, op) && r.strictMatch(anchor, op) {
			return &AttachedOperation{Op: op, Anchor: anchor}, nil
		}
	}
	return r.search(op)
}

// anchorAtPath follows op.Path from the target root: the whole path
// for node updates, all but the final slot index for forest updates.
func (r *Resolver) anchorAtPath(op *Operation) (tree.Anchor, bool) {
	path := op.Path
	var slot int
	if op.Kind == UpdateForest {
		if len(path) == 0 {
			return tree.Anchor{}, false
		}
		path, slot = path[:len(path)-1], path[len(path)-1]
	}

	cur := r.root
	for _, idx := range path {
		if idx >= len(cur.Children) {
			return tree.Anchor{}, false
		}
		cur = cur.Children[idx]
	}
	if op.Kind == UpdateNode {
		return tree.NodeAnchor(cur), true
	}
	if slot > len(cur.Children) {
		return tree.Anchor{}, false
	}
	return tree.SlotAnchor(cur, slot), true
}

// search slides the context windows over the target's node sequence
// within the search radius around the path's linear position. Ties
// break toward the path, then toward earlier document order.
func (r *Resolver) search(op *Operation) (*AttachedOperation, error) {
	center := r.centerPosition(op)

	var (
		best      tree.Anchor
		bestScore = -1
		bestDist  int
	)
	consider := func(anchor tree.Anchor, pos int) {
		if !r.preconditionHolds(anchor, op) {
			return
		}
		score, ok := r.score(anchor, op)
		if !ok {
			return
		}
		if score == 0 && len(op.Remove) > 0 {
			return
		}
		dist := pos - center
		if dist < 0 {
			dist = -dist
		}
		if score > bestScore || (score == bestScore && dist < bestDist) {
			best, bestScore, bestDist = anchor, score, dist
		}
	}

	for pos := center - r.searchRadius; pos <= center+r.searchRadius; pos++ {
		n := r.index.Node(pos)
		if n == nil {
			continue
		}
		if op.Kind == UpdateNode {
			consider(tree.NodeAnchor(n), pos)
		} else if n.Parent != nil {
			consider(tree.SlotAnchor(n.Parent, n.ChildIndex), pos)
		}
	}
	// slots past the last child have no node of their own; the stored
	// path is the one further candidate for them
	if anchor, ok := r.anchorAtPath(op); ok && anchor.Target == nil {
		consider(anchor, r.anchorPosition(anchor))
	}

	if bestScore < 0 {
		return nil, fmt.Errorf("%w: path %q", ErrResolutionFailed, op.PathString())
	}
	return &AttachedOperation{Op: op, Anchor: best}, nil
}

// centerPosition maps op.Path to a document-order position, clamping
// at the first out-of-range segment.
func (r *Resolver) centerPosition(op *Operation) int {
	cur := r.root
	for _, idx := range op.Path {
		if idx >= len(cur.Children) {
			break
		}
		cur = cur.Children[idx]
	}
	pos, _ := r.index.Position(cur)
	return pos
}

func (r *Resolver) anchorPosition(anchor tree.Anchor) int {
	if anchor.Target != nil {
		pos, _ := r.index.Position(anchor.Target)
		return pos
	}
	pos, _ := r.index.Position(anchor.Base)
	return pos + r.index.Size(anchor.Base)
}

// preconditionHolds reports whether op's remove list matches the
// target at anchor.
func (r *Resolver) preconditionHolds(anchor tree.Anchor, op *Operation) bool {
	if op.Kind == UpdateNode {
		return len(op.Remove) == 1 && anchor.Target != nil &&
			anchor.Target.Value == op.Remove[0].Value
	}
	if anchor.Index+len(op.Remove) > len(anchor.Base.Children) {
		return false
	}
	for i, pattern := range op.Remove {
		if !SubtreeMatches(pattern, anchor.Base.Children[anchor.Index+i]) {
			return false
		}
	}
	return true
}

// strictMatch accepts only if every non-zero fingerprint entry
// matches the target exactly at its mirrored position.
func (r *Resolver) strictMatch(anchor tree.Anchor, op *Operation) bool {
	head, tail := r.windows(anchor, op)
	for i, exp := range op.Head {
		if exp != 0 && head[i] != exp {
			return false
		}
	}
	for i, exp := range op.Tail {
		if exp != 0 && tail[i] != exp {
			return false
		}
	}
	return true
}

// score rates an anchor candidate: each non-zero fingerprint entry
// scores 2 on an exact positional hit and 1 on a hit anywhere in the
// window. A candidate is acceptable only if every non-zero head entry
// hits and at least half of the non-zero tail entries do.
func (r *Resolver) score(anchor tree.Anchor, op *Operation) (int, bool) {
	head, tail := r.windows(anchor, op)

	total := 0
	tailNonzero, tailHits := 0, 0
	for i, exp := range op.Head {
		if exp == 0 {
			continue
		}
		switch {
		case head[i] == exp:
			total += 2
		case contains(head, exp) || contains(tail, exp):
			total++
		default:
			return 0, false
		}
	}
	for i, exp := range op.Tail {
		if exp == 0 {
			continue
		}
		tailNonzero++
		switch {
		case tail[i] == exp:
			total += 2
			tailHits++
		case contains(tail, exp) || contains(head, exp):
			total++
			tailHits++
		}
	}
	if tailHits*2 < tailNonzero {
		return 0, false
	}
	return total, true
}

// windows extracts the target's head and tail hash windows around
// anchor, mirroring fingerprint generation: ancestors of the anchor
// zero out in the head and the tail starts past the removed run.
func (r *Resolver) windows(anchor tree.Anchor, op *Operation) (head, tail []uint32) {
	pos := r.anchorPosition(anchor)
	head = make([]uint32, len(op.Head))
	for i := range head {
		n := r.index.Node(pos - len(head) + i)
		if n == nil || r.isAnchorAncestor(n, anchor.Base) {
			continue
		}
		head[i] = r.hashes.Get(n)
	}
	tail = make([]uint32, len(op.Tail))
	skip := op.RemovedSize()
	for i := range tail {
		n := r.index.Node(pos + skip + i)
		if n == nil {
			continue
		}
		tail[i] = r.hashes.Get(n)
	}
	return head, tail
}

func (r *Resolver) isAnchorAncestor(n, base *tree.Node) bool {
	return base != nil && (n == base || base.HasAncestor(n))
}

func contains(window []uint32, h uint32) bool {
	for _, w := range window {
		if w == h {
			return true
		}
	}
	return false
}
