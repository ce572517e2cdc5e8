// Package delta derives context-anchored edit operations from a
// matching, locates their anchors in divergent targets, and applies
// them as toggleable hunks.
package delta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/treedelta/treedelta/tree"
)

var (
	// ErrResolutionFailed is returned when no anchor in the target
	// scores above the acceptance threshold.
	ErrResolutionFailed = errors.New("delta: no anchor found")
	// ErrPrecondition is returned when the nodes at a resolved anchor
	// do not match an operation's remove list.
	ErrPrecondition = errors.New("delta: remove list does not match target")
	// ErrUnsupportedType is returned for unknown operation kinds.
	ErrUnsupportedType = errors.New("delta: unsupported operation type")
)

// Kind discriminates the two operation variants.
type Kind int

const (
	// UpdateNode replaces the content of a single node, keeping its
	// children.
	UpdateNode Kind = iota
	// UpdateForest replaces a run of sibling subtrees with another.
	UpdateForest
)

func (k Kind) String() string {
	switch k {
	case UpdateNode:
		return "node"
	case UpdateForest:
		return "forest"
	default:
		return "invalid"
	}
}

// KindFromString parses the wire tag of an operation kind.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "node":
		return UpdateNode, nil
	case "forest":
		return UpdateForest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

// Operation is a detached context operation: an edit described
// against no particular tree. Path leads from the root to the edited
// node (UpdateNode) or to the first edited child slot (UpdateForest).
// Remove and Insert are forests of subtrees: shallow single nodes
// for UpdateNode, deep runs for UpdateForest. Head and Tail are the
// fingerprint windows around the anchor.
type Operation struct {
	Kind   Kind
	Path   []int
	Remove []*tree.Node
	Insert []*tree.Node
	Head   []uint32
	Tail   []uint32
}

// RemovedSize returns the document-order node count the operation
// removes at its anchor: the full remove forest for UpdateForest,
// the single updated node for UpdateNode.
func (op *Operation) RemovedSize() int {
	if op.Kind == UpdateNode {
		return 1
	}
	size := 0
	for _, r := range op.Remove {
		size += r.Size()
	}
	return size
}

// PathString renders the path in wire form: slash-separated decimal
// child indices, empty for the root.
func (op *Operation) PathString() string {
	if len(op.Path) == 0 {
		return ""
	}
	parts := make([]string, len(op.Path))
	for i, idx := range op.Path {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// ParsePath parses a wire-form path.
func ParsePath(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	path := make([]int, len(parts))
	for i, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("delta: bad path segment %q", p)
		}
		path[i] = idx
	}
	return path, nil
}

// AttachedOperation is an Operation bound to a concrete anchor in a
// target tree.
type AttachedOperation struct {
	Op     *Operation
	Anchor tree.Anchor
}
