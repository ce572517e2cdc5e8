package delta

import (
	"github.com/treedelta/treedelta/internal/lcs"
	"github.com/treedelta/treedelta/match"
	"github.com/treedelta/treedelta/tree"
)

// Editor extracts a minimal operation sequence from a matching. It
// walks matched pairs from the roots down: a pair whose content
// differs yields an UpdateNode, child lists are aligned against the
// matching and every unstable run of siblings yields an UpdateForest
// replacing the run in A with the corresponding run in B. Only stable
// child pairs are descended into, so a replaced subtree is described
// by exactly one operation.
type Editor struct {
	m     *match.Matching
	index *tree.DocumentOrderIndex
	gen   *ContextGenerator
	ops   []*Operation
}

// NewEditor creates an editor over a matching. index is the
// document-order index of tree A; gen fingerprints anchors in it.
func NewEditor(m *match.Matching, index *tree.DocumentOrderIndex, gen *ContextGenerator) *Editor {
	return &Editor{m: m, index: index, gen: gen}
}

// EditScript returns the operations that transform a into b, in
// document order of their anchors in a.
func (e *Editor) EditScript(a, b *tree.Node) []*Operation {
	e.ops = nil
	e.process(a, b)
	return e.ops
}

func (e *Editor) process(a, b *tree.Node) {
	if a.Value != b.Value {
		e.emitNodeUpdate(a, b)
	}

	stable := lcs.Pairs(len(a.Children), len(b.Children), func(i, j int) bool {
		return e.m.Partner(a.Children[i]) == b.Children[j]
	})

	prevA, prevB := 0, 0
	for _, p := range stable {
		e.emitForestUpdate(a, b, prevA, p.X, prevB, p.Y)
		e.process(a.Children[p.X], b.Children[p.Y])
		prevA, prevB = p.X+1, p.Y+1
	}
	e.emitForestUpdate(a, b, prevA, len(a.Children), prevB, len(b.Children))
}

// emitNodeUpdate records a content change of a matched node. Remove
// and insert carry the node shallowly; children stay in place.
func (e *Editor) emitNodeUpdate(a, b *tree.Node) {
	pos, _ := e.index.Position(a)
	e.ops = append(e.ops, &Operation{
		Kind:   UpdateNode,
		Path:   a.Path(),
		Remove: []*tree.Node{tree.NewNode(a.Value, a.Data)},
		Insert: []*tree.Node{tree.NewNode(b.Value, b.Data)},
		Head:   e.gen.Head(a.Parent, pos),
		Tail:   e.gen.Tail(pos, 1),
	})
}

// emitForestUpdate records the replacement of a.Children[fromA:toA]
// by b.Children[fromB:toB], anchored at the first edited child slot.
func (e *Editor) emitForestUpdate(a, b *tree.Node, fromA, toA, fromB, toB int) {
	if fromA == toA && fromB == toB {
		return
	}

	op := &Operation{
		Kind: UpdateForest,
		Path: append(a.Path(), fromA),
	}
	skip := 0
	for _, r := range a.Children[fromA:toA] {
		op.Remove = append(op.Remove, r)
		skip += e.index.Size(r)
	}
	op.Insert = append(op.Insert, b.Children[fromB:toB]...)

	pos := e.anchorPosition(a, fromA)
	op.Head = e.gen.Head(a, pos)
	op.Tail = e.gen.Tail(pos, skip)
	e.ops = append(e.ops, op)
}

// anchorPosition maps the index-th child slot of base to a
// document-order position; the slot past the last child maps to the
// position following base's subtree.
func (e *Editor) anchorPosition(base *tree.Node, index int) int {
	if index < len(base.Children) {
		pos, _ := e.index.Position(base.Children[index])
		return pos
	}
	pos, _ := e.index.Position(base)
	return pos + e.index.Size(base)
}
