package match

import (
	"context"

	"github.com/treedelta/treedelta/tree"
)

// xcc carries the state of one matching run: the two roots, the
// shared hash caches (one cache serves both trees, keys are node
// identities) and the matching under construction.
type xcc struct {
	a, b   *tree.Node
	nodes  *tree.NodeHashIndex
	atrees *tree.TreeHashIndex
	m      *Matching
}

// Trees builds a matching between the trees rooted at a and b using
// the given per-family hasher. The roots are paired unconditionally;
// a top-down pass pairs identical subtrees wholesale, a bottom-up
// pass pairs remaining nodes by content and by matched children, and
// the two alternate until neither makes progress.
func Trees(ctx context.Context, a, b *tree.Node, hasher tree.NodeHasher) (*Matching, error) {
	nodes := tree.NewNodeHashIndex(hasher)
	x := &xcc{
		a:      a,
		b:      b,
		nodes:  nodes,
		atrees: tree.NewTreeHashIndex(nodes),
		m:      NewMatching(),
	}

	if err := x.m.Put(a, b); err != nil {
		return nil, err
	}

	// identical subtrees first: they are the only certain pairs
	for x.topDown() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	// remaining leaves pair across generations; their evidence guides
	// the structural passes over the changed regions
	x.matchLeaves()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress := x.topDown()
		progress = x.bottomUp() || progress
		if !progress {
			break
		}
	}
	return x.m, nil
}

// eqNode reports content equality of two nodes. The hash comparison
// is the cheap screen, the value comparison breaks collisions.
func (x *xcc) eqNode(a, b *tree.Node) bool {
	return x.nodes.Get(a) == x.nodes.Get(b) && a.Value == b.Value
}

// eqSubtree reports whether two subtrees are identical and entirely
// unmatched. Equal tree hashes are rechecked structurally in document
// order; a hash collision demotes to "not equal".
func (x *xcc) eqSubtree(a, b *tree.Node) bool {
	if x.atrees.Get(a) != x.atrees.Get(b) {
		return false
	}
	return x.recheck(a, b)
}

func (x *xcc) recheck(a, b *tree.Node) bool {
	if x.m.IsMatched(a) || x.m.IsMatched(b) {
		return false
	}
	if !x.eqNode(a, b) || len(a.Children) != len(b.Children) {
		return false
	}
	for i, c := range a.Children {
		if !x.recheck(c, b.Children[i]) {
			return false
		}
	}
	return true
}

// topDown pairs identical subtrees: pre-order over A, every unmatched
// node whose parent is matched searches the partner's children in
// order for the first unmatched identical subtree. Earlier child
// index wins.
func (x *xcc) topDown() bool {
	progress := false
	x.a.ForEach(func(a *tree.Node) {
		if a.Parent == nil || x.m.IsMatched(a) {
			return
		}
		pb := x.m.Partner(a.Parent)
		if pb == nil {
			return
		}
		for _, c := range pb.Children {
			if x.eqSubtree(a, c) {
				x.matchSubtrees(a, c)
				progress = true
				break
			}
		}
	})
	return progress
}

// matchSubtrees pairs two identical subtrees node-for-node in
// document order. Shapes are known equal after recheck.
func (x *xcc) matchSubtrees(a, b *tree.Node) {
	x.m.Put(a, b)
	for i, c := range a.Children {
		x.matchSubtrees(c, b.Children[i])
	}
}

// bottomUp refines the matching post-order over A. For an unmatched
// node below a matched parent the partner's unmatched children are
// the candidates: one holding a matched child of ours wins outright
// (the node changed content but kept its children), otherwise the
// first content-equal candidate does.
func (x *xcc) bottomUp() bool {
	progress := false
	x.a.ForEachPostorder(func(a *tree.Node) {
		if a.Parent == nil || x.m.IsMatched(a) {
			return
		}
		pb := x.m.Partner(a.Parent)
		if pb == nil {
			return
		}
		for _, c := range pb.Children {
			if !x.m.IsMatched(c) && x.sharesMatchedChild(a, c) {
				x.m.Put(a, c)
				progress = true
				return
			}
		}
		for _, c := range pb.Children {
			if !x.m.IsMatched(c) && x.eqNode(a, c) {
				x.m.Put(a, c)
				progress = true
				return
			}
		}
	})
	return progress
}

// matchLeaves pairs unmatched leaves of A with content-equal
// unmatched leaves in the same generation of B, preferring candidates
// whose parents agree, and propagates each pair up through
// content-equal unmatched ancestors.
func (x *xcc) matchLeaves() bool {
	genB := tree.NewGenerationIndex(x.b)
	genB.BuildAll()

	progress := false
	x.a.ForEach(func(a *tree.Node) {
		if len(a.Children) != 0 || x.m.IsMatched(a) {
			return
		}
		var fallback *tree.Node
		for c := genB.First(a.Depth); c != nil; c = genB.Get(c, 1) {
			if len(c.Children) != 0 || x.m.IsMatched(c) || !x.eqNode(a, c) {
				continue
			}
			if parentValuesAgree(a, c) {
				x.matchUpward(a, c)
				progress = true
				return
			}
			if fallback == nil {
				fallback = c
			}
		}
		if fallback != nil {
			x.matchUpward(a, fallback)
			progress = true
		}
	})
	return progress
}

func parentValuesAgree(a, c *tree.Node) bool {
	if a.Parent == nil || c.Parent == nil {
		return a.Parent == c.Parent
	}
	return a.Parent.Value == c.Parent.Value
}

// matchUpward pairs a with c and then their ancestors, level by
// level, for as long as both sides are unmatched and content-equal.
func (x *xcc) matchUpward(a, c *tree.Node) {
	x.m.Put(a, c)
	pa, pc := a.Parent, c.Parent
	for pa != nil && pc != nil && !x.m.IsMatched(pa) && !x.m.IsMatched(pc) && x.eqNode(pa, pc) {
		x.m.Put(pa, pc)
		pa, pc = pa.Parent, pc.Parent
	}
}

func (x *xcc) sharesMatchedChild(a, c *tree.Node) bool {
	for _, ch := range a.Children {
		if p := x.m.Partner(ch); p != nil && p.Parent == c {
			return true
		}
	}
	return false
}
