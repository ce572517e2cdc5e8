package delta

import (
	"context"
	"fmt"

	"github.com/treedelta/treedelta/tree"
)

// Hunk is one applied, reversible in-place edit. Activate and
// Deactivate are idempotent on their target state.
type Hunk interface {
	Activate() error
	Deactivate() error
	Toggle() error
	IsActive() bool
}

// HandlerFactory materializes attached operations as hunks.
type HandlerFactory interface {
	CreateOperationHandler(att *AttachedOperation) (Hunk, error)
}

// SubtreeMatches reports whether the subtree at actual has the same
// values and shape as pattern.
func SubtreeMatches(pattern, actual *tree.Node) bool {
	if pattern.Value != actual.Value || len(pattern.Children) != len(actual.Children) {
		return false
	}
	for i, c := range pattern.Children {
		if !SubtreeMatches(c, actual.Children[i]) {
			return false
		}
	}
	return true
}

// treeHandlerFactory builds hunks that splice the generic tree; the
// family re-renders its payload from the tree after patching, so one
// factory serves every family.
type treeHandlerFactory struct{}

// NewHandlerFactory returns the tree-splicing handler factory.
func NewHandlerFactory() HandlerFactory {
	return treeHandlerFactory{}
}

func (treeHandlerFactory) CreateOperationHandler(att *AttachedOperation) (Hunk, error) {
	switch att.Op.Kind {
	case UpdateNode:
		if len(att.Op.Remove) != 1 || len(att.Op.Insert) != 1 {
			return nil, fmt.Errorf("%w: node update carries %d/%d payloads",
				ErrUnsupportedType, len(att.Op.Remove), len(att.Op.Insert))
		}
		if att.Anchor.Target == nil {
			return nil, fmt.Errorf("%w: node update without target", ErrPrecondition)
		}
		return &nodeUpdateHunk{
			target:   att.Anchor.Target,
			oldValue: att.Op.Remove[0].Value,
			oldData:  att.Op.Remove[0].Data,
			newValue: att.Op.Insert[0].Value,
			newData:  att.Op.Insert[0].Data,
		}, nil
	case UpdateForest:
		h := &forestUpdateHunk{
			base:    att.Anchor.Base,
			index:   att.Anchor.Index,
			target:  att.Anchor.Target,
			pattern: att.Op.Remove,
		}
		// fresh copies keep the source tree of the operation intact
		// and survive repeated toggling
		for _, in := range att.Op.Insert {
			h.insert = append(h.insert, in.Clone())
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, att.Op.Kind)
	}
}

// nodeUpdateHunk swaps a node's content in place, children untouched.
type nodeUpdateHunk struct {
	target             *tree.Node
	oldValue, newValue string
	oldData, newData   interface{}
	active             bool
}

func (h *nodeUpdateHunk) Activate() error {
	if h.active {
		return nil
	}
	if h.target.Value != h.oldValue {
		return fmt.Errorf("%w: node is %q, want %q", ErrPrecondition, h.target.Value, h.oldValue)
	}
	h.target.Value, h.target.Data = h.newValue, h.newData
	h.active = true
	return nil
}

func (h *nodeUpdateHunk) Deactivate() error {
	if !h.active {
		return nil
	}
	h.target.Value, h.target.Data = h.oldValue, h.oldData
	h.active = false
	return nil
}

func (h *nodeUpdateHunk) Toggle() error {
	if h.active {
		return h.Deactivate()
	}
	return h.Activate()
}

func (h *nodeUpdateHunk) IsActive() bool { return h.active }

// forestUpdateHunk replaces a run of sibling subtrees. The removed
// run is kept detached for deactivation; the anchor's target node
// pins the slot even when earlier hunks shift sibling indices.
type forestUpdateHunk struct {
	base    *tree.Node
	index   int
	target  *tree.Node
	pattern []*tree.Node

	insert    []*tree.Node
	removed   []*tree.Node
	appliedAt int
	active    bool
}

func (h *forestUpdateHunk) slot() int {
	if h.target != nil && h.target.Parent == h.base {
		return h.target.ChildIndex
	}
	if h.index > len(h.base.Children) {
		return len(h.base.Children)
	}
	return h.index
}

func (h *forestUpdateHunk) Activate() error {
	if h.active {
		return nil
	}
	at := h.slot()
	if at+len(h.pattern) > len(h.base.Children) {
		return fmt.Errorf("%w: %d nodes to remove at slot %d of %d children",
			ErrPrecondition, len(h.pattern), at, len(h.base.Children))
	}
	for i, pattern := range h.pattern {
		if !SubtreeMatches(pattern, h.base.Children[at+i]) {
			return fmt.Errorf("%w: child %d is %q, want %q",
				ErrPrecondition, at+i, h.base.Children[at+i].Value, pattern.Value)
		}
	}

	removed, err := h.base.Splice(at, len(h.pattern), h.insert)
	if err != nil {
		return err
	}
	h.removed = removed
	h.appliedAt = at
	h.active = true
	return nil
}

func (h *forestUpdateHunk) Deactivate() error {
	if !h.active {
		return nil
	}
	if _, err := h.base.Splice(h.appliedAt, len(h.insert), h.removed); err != nil {
		return err
	}
	h.active = false
	return nil
}

func (h *forestUpdateHunk) Toggle() error {
	if h.active {
		return h.Deactivate()
	}
	return h.Activate()
}

func (h *forestUpdateHunk) IsActive() bool { return h.active }

// Mode selects how a session treats a hunk that fails to resolve or
// apply.
type Mode int

const (
	// Strict aborts on the first failure and deactivates everything
	// applied so far, leaving the target untouched.
	Strict Mode = iota
	// BestEffort skips failing hunks and keeps going.
	BestEffort
)

// Session owns the ordered hunks of one patching run against one
// target tree. While a session holds a tree no one else may mutate
// or rehash it.
type Session struct {
	factory HandlerFactory
	mode    Mode
	hunks   []Hunk
	skipped int
}

// NewSession creates an empty session. A nil factory selects the
// tree-splicing default.
func NewSession(factory HandlerFactory, mode Mode) *Session {
	if factory == nil {
		factory = NewHandlerFactory()
	}
	return &Session{factory: factory, mode: mode}
}

// Apply resolves every operation against r's pristine target index,
// then activates the resulting hunks in order; resolution must finish
// before the first hunk mutates the tree and invalidates the index.
// In Strict mode the first failure reverts all prior hunks and
// returns the error; in BestEffort mode operations that fail to
// resolve or to activate are counted and skipped. An operation the
// factory cannot build a hunk for returns the error in either mode.
func (s *Session) Apply(ctx context.Context, r *Resolver, ops []*Operation) error {
	var pending []Hunk
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		att, err := r.Resolve(op)
		if err != nil {
			if s.mode == BestEffort {
				s.skipped++
				continue
			}
			return fmt.Errorf("operation %d: %w", i, err)
		}
		hunk, err := s.factory.CreateOperationHandler(att)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		pending = append(pending, hunk)
	}

	for _, hunk := range pending {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}
		if err := hunk.Activate(); err != nil {
			if s.mode == BestEffort {
				s.skipped++
				continue
			}
			return s.fail(err)
		}
		s.hunks = append(s.hunks, hunk)
	}
	return nil
}

func (s *Session) fail(err error) error {
	if s.mode == Strict {
		if rerr := s.Revert(); rerr != nil {
			return fmt.Errorf("%w (revert: %v)", err, rerr)
		}
	}
	return err
}

// Revert deactivates every active hunk in reverse activation order.
func (s *Session) Revert() error {
	for i := len(s.hunks) - 1; i >= 0; i-- {
		if err := s.hunks[i].Deactivate(); err != nil {
			return err
		}
	}
	return nil
}

// Hunks returns the activated hunks in activation order.
func (s *Session) Hunks() []Hunk { return s.hunks }

// Skipped returns how many operations a BestEffort session dropped.
func (s *Session) Skipped() int { return s.skipped }
