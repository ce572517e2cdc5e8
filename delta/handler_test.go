package delta

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/treedelta/treedelta/jsonml"
	"github.com/treedelta/treedelta/tree"
)

// render reduces a tree back to its JsonML value for comparisons.
func render(t *testing.T, root *tree.Node) interface{} {
	t.Helper()
	v, err := jsonml.Adapter{}.RenderDocument(root)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// applyOps resolves and activates ops against target in one session.
func applyOps(t *testing.T, target *tree.Node, ops []*Operation, mode Mode) (*Session, error) {
	t.Helper()
	r := NewResolver(target, jsonml.Hasher{}, 0)
	s := NewSession(nil, mode)
	return s, s.Apply(context.Background(), r, ops)
}

func TestForestHunkToggleInvolution(t *testing.T) {
	ops, _, _ := editScript(t, `["p", "hello"]`, `["p", "world"]`)
	target := adapt(t, `["p", "hello"]`)
	before := render(t, target)

	s, err := applyOps(t, target, ops, Strict)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Hunks()) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(s.Hunks()))
	}
	hunk := s.Hunks()[0]
	if !hunk.IsActive() {
		t.Fatal("hunk inactive after apply")
	}
	after := render(t, target)

	// two toggles must restore the patched state exactly, one the
	// original state
	if err := hunk.Toggle(); err != nil {
		t.Fatal(err)
	}
	if got := render(t, target); !reflect.DeepEqual(got, before) {
		t.Errorf("toggle off did not restore the original: %v", got)
	}
	if err := hunk.Toggle(); err != nil {
		t.Fatal(err)
	}
	if got := render(t, target); !reflect.DeepEqual(got, after) {
		t.Errorf("toggle on did not restore the patched state: %v", got)
	}
}

func TestNodeHunkToggleInvolution(t *testing.T) {
	ops, _, _ := editScript(t, `["a"]`, `["a", {"href": "x"}]`)
	target := adapt(t, `["a"]`)
	before := render(t, target)

	s, err := applyOps(t, target, ops, Strict)
	if err != nil {
		t.Fatal(err)
	}
	hunk := s.Hunks()[0]
	patched := render(t, target)
	if reflect.DeepEqual(patched, before) {
		t.Fatal("apply changed nothing")
	}

	hunk.Toggle()
	if got := render(t, target); !reflect.DeepEqual(got, before) {
		t.Errorf("toggle off mismatch: %v", got)
	}
	hunk.Toggle()
	if got := render(t, target); !reflect.DeepEqual(got, patched) {
		t.Errorf("toggle on mismatch: %v", got)
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	ops, _, _ := editScript(t, `["p", "hello"]`, `["p", "world"]`)
	target := adapt(t, `["p", "hello"]`)
	s, err := applyOps(t, target, ops, Strict)
	if err != nil {
		t.Fatal(err)
	}
	hunk := s.Hunks()[0]
	patched := render(t, target)
	if err := hunk.Activate(); err != nil {
		t.Fatal(err)
	}
	if got := render(t, target); !reflect.DeepEqual(got, patched) {
		t.Errorf("second activate changed the tree: %v", got)
	}
	hunk.Deactivate()
	restored := render(t, target)
	if err := hunk.Deactivate(); err != nil {
		t.Fatal(err)
	}
	if got := render(t, target); !reflect.DeepEqual(got, restored) {
		t.Errorf("second deactivate changed the tree: %v", got)
	}
}

func TestStrictSessionRevertsOnFailure(t *testing.T) {
	// two independent edits at the opposite ends of the list
	ops, _, _ := editScript(t,
		`["ul", ["li", "a"], ["li", "b"], ["li", "c"], ["li", "d"]]`,
		`["ul", ["li", "A"], ["li", "b"], ["li", "c"], ["li", "D"]]`)
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}

	// the target lost the last item, so the second edit has nothing
	// to anchor to
	target := adapt(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)
	before := render(t, target)

	_, err := applyOps(t, target, ops, Strict)
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("expected ErrResolutionFailed, got %v", err)
	}
	if got := render(t, target); !reflect.DeepEqual(got, before) {
		t.Errorf("strict failure left the tree modified: %v", got)
	}
}

func TestBestEffortSessionSkips(t *testing.T) {
	ops, _, _ := editScript(t,
		`["ul", ["li", "a"], ["li", "b"], ["li", "c"], ["li", "d"]]`,
		`["ul", ["li", "A"], ["li", "b"], ["li", "c"], ["li", "D"]]`)
	target := adapt(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)

	s, err := applyOps(t, target, ops, BestEffort)
	if err != nil {
		t.Fatal(err)
	}
	if s.Skipped() != 1 {
		t.Errorf("expected 1 skipped operation, got %d", s.Skipped())
	}
	got := render(t, target)
	want := []interface{}{"ul",
		[]interface{}{"li", "A"},
		[]interface{}{"li", "b"},
		[]interface{}{"li", "c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSessionRevertRestoresOriginal(t *testing.T) {
	ops, _, _ := editScript(t,
		`["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`,
		`["ul", ["li", "x"], ["li", "b"], ["li", "z"]]`)
	target := adapt(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)
	before := render(t, target)

	s, err := applyOps(t, target, ops, Strict)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Revert(); err != nil {
		t.Fatal(err)
	}
	if got := render(t, target); !reflect.DeepEqual(got, before) {
		t.Errorf("revert mismatch: %v", got)
	}
}
