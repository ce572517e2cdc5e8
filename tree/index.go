package tree

// DocumentOrderIndex is an injective sequence of all nodes of a tree
// in pre-order, with cached positions and subtree sizes. It is built
// once; the indexed tree must not be mutated afterwards.
type DocumentOrderIndex struct {
	root     *Node
	nodes    []*Node
	pos      map[*Node]int
	sizes    map[*Node]int
	complete bool
}

// NewDocumentOrderIndex creates an unbuilt index over root's tree.
func NewDocumentOrderIndex(root *Node) *DocumentOrderIndex {
	return &DocumentOrderIndex{
		root:  root,
		pos:   map[*Node]int{},
		sizes: map[*Node]int{},
	}
}

// BuildAll populates the index with a single pre-order walk.
func (idx *DocumentOrderIndex) BuildAll() {
	if idx.complete {
		return
	}
	idx.root.ForEach(func(n *Node) {
		idx.pos[n] = len(idx.nodes)
		idx.nodes = append(idx.nodes, n)
	})
	// subtree sizes are summed bottom-up: a node counts itself plus the
	// sizes of its children
	idx.root.ForEachPostorder(func(n *Node) {
		size := 1
		for _, c := range n.Children {
			size += idx.sizes[c]
		}
		idx.sizes[n] = size
	})
	idx.complete = true
}

// Complete reports whether BuildAll has run.
func (idx *DocumentOrderIndex) Complete() bool { return idx.complete }

// Len returns the number of indexed nodes.
func (idx *DocumentOrderIndex) Len() int { return len(idx.nodes) }

// Node returns the node at document-order position i, or nil if i is
// out of bounds.
func (idx *DocumentOrderIndex) Node(i int) *Node {
	if i < 0 || i >= len(idx.nodes) {
		return nil
	}
	return idx.nodes[i]
}

// Position returns ref's document-order position.
func (idx *DocumentOrderIndex) Position(ref *Node) (int, bool) {
	p, ok := idx.pos[ref]
	return p, ok
}

// Get returns the node offset positions away from ref in document
// order, or nil if the position is out of bounds or ref is foreign.
func (idx *DocumentOrderIndex) Get(ref *Node, offset int) *Node {
	p, ok := idx.pos[ref]
	if !ok {
		return nil
	}
	return idx.Node(p + offset)
}

// Size returns the node count of ref's subtree, 0 for foreign nodes.
func (idx *DocumentOrderIndex) Size(ref *Node) int {
	return idx.sizes[ref]
}

// GenerationIndex records the nodes of a tree per depth, each
// generation in document order. Like DocumentOrderIndex it is built
// eagerly; the tree must not change afterwards.
type GenerationIndex struct {
	root     *Node
	rows     [][]*Node
	pos      map[*Node]int
	complete bool
}

// NewGenerationIndex creates an unbuilt generation index.
func NewGenerationIndex(root *Node) *GenerationIndex {
	return &GenerationIndex{root: root, pos: map[*Node]int{}}
}

// BuildAll populates every generation with a single pre-order walk.
func (idx *GenerationIndex) BuildAll() {
	if idx.complete {
		return
	}
	idx.root.ForEach(func(n *Node) {
		for len(idx.rows) <= n.Depth {
			idx.rows = append(idx.rows, nil)
		}
		idx.pos[n] = len(idx.rows[n.Depth])
		idx.rows[n.Depth] = append(idx.rows[n.Depth], n)
	})
	idx.complete = true
}

// Complete reports whether BuildAll has run.
func (idx *GenerationIndex) Complete() bool { return idx.complete }

// Depths returns the number of generations.
func (idx *GenerationIndex) Depths() int { return len(idx.rows) }

// First returns the first node of the given generation.
func (idx *GenerationIndex) First(depth int) *Node {
	if depth < 0 || depth >= len(idx.rows) || len(idx.rows[depth]) == 0 {
		return nil
	}
	return idx.rows[depth][0]
}

// Last returns the last node of the given generation.
func (idx *GenerationIndex) Last(depth int) *Node {
	if depth < 0 || depth >= len(idx.rows) || len(idx.rows[depth]) == 0 {
		return nil
	}
	row := idx.rows[depth]
	return row[len(row)-1]
}

// Get returns the node offset positions away from ref within ref's
// own generation, or nil out of bounds.
func (idx *GenerationIndex) Get(ref *Node, offset int) *Node {
	p, ok := idx.pos[ref]
	if !ok {
		return nil
	}
	row := idx.rows[ref.Depth]
	if p+offset < 0 || p+offset >= len(row) {
		return nil
	}
	return row[p+offset]
}
