package tree

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// NewHash returns the hash used throughout: 32-bit FNV-1a, wrapped in
// a function for easy algorithm swapping by package consumers.
var NewHash = func() hash.Hash32 {
	return fnv.New32a()
}

// Fixed tag bytes fed to the hash ahead of payload bytes so that
// nodes of different kinds with equal content hash apart. Every
// family's hasher uses the same tags.
var (
	HashTagElement   = []byte{0x00, 0x00, 0x00, 0x01}
	HashTagAttribute = []byte{0x00, 0x00, 0x00, 0x02}
	HashTagText      = []byte{0x00, 0x00, 0x00, 0x03}
	HashSeparator    = []byte{0x00, 0x00}
)

// NodeHasher feeds the local content of a node (tag, attributes,
// text, never children) into h. Implemented per document family.
type NodeHasher interface {
	HashNode(n *Node, h hash.Hash32)
}

// NodeHashIndex memoizes per-node content hashes. The cache lives on
// the index, keyed by node identity, keeping nodes immutable.
type NodeHashIndex struct {
	hasher NodeHasher
	cache  map[*Node]uint32
}

// NewNodeHashIndex creates an empty cache over hasher.
func NewNodeHashIndex(hasher NodeHasher) *NodeHashIndex {
	return &NodeHashIndex{hasher: hasher, cache: map[*Node]uint32{}}
}

// Get returns n's content hash, computing it on first access.
func (x *NodeHashIndex) Get(n *Node) uint32 {
	if sum, ok := x.cache[n]; ok {
		return sum
	}
	h := NewHash()
	x.hasher.HashNode(n, h)
	sum := h.Sum32()
	x.cache[n] = sum
	return sum
}

// TreeHashIndex memoizes subtree hashes: the hash of the node hashes
// of a subtree in document order.
type TreeHashIndex struct {
	nodes *NodeHashIndex
	cache map[*Node]uint32
}

// NewTreeHashIndex creates an empty subtree-hash cache over nodes.
func NewTreeHashIndex(nodes *NodeHashIndex) *TreeHashIndex {
	return &TreeHashIndex{nodes: nodes, cache: map[*Node]uint32{}}
}

// Get returns the subtree hash of n, computing and caching hashes for
// the whole subtree on first access.
func (x *TreeHashIndex) Get(n *Node) uint32 {
	if sum, ok := x.cache[n]; ok {
		return sum
	}
	h := NewHash()
	var buf [4]byte
	n.ForEach(func(d *Node) {
		binary.BigEndian.PutUint32(buf[:], x.nodes.Get(d))
		h.Write(buf[:])
	})
	sum := h.Sum32()
	x.cache[n] = sum
	return sum
}
