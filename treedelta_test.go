package treedelta

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/treedelta/treedelta/delta"
)

type DiffApplyTestCase struct {
	description string // description of what test is checking
	src, dst    string // express documents as JSON strings
	ops         int    // expected operation count
}

func decodeJSON(t *testing.T, src string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(src), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

// RunJSONMLCases diffs src against dst and re-applies the patch to
// src, expecting to arrive at dst exactly.
func RunJSONMLCases(t *testing.T, cases []DiffApplyTestCase, opts ...Option) {
	ctx := context.Background()
	fam := JSONML()
	dd := New(opts...)

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			src := decodeJSON(t, c.src)
			dst := decodeJSON(t, c.dst)

			patch, err := dd.Diff(ctx, fam, src, dst)
			if err != nil {
				t.Fatal(err)
			}
			if c.ops >= 0 && patch.Len() != c.ops {
				t.Errorf("expected %d operations, got %d", c.ops, patch.Len())
			}

			got, _, err := dd.Apply(ctx, fam, src, patch)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(dst, got); diff != "" {
				t.Errorf("apply(diff(a, b), a) != b (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffApplyRoundTrip(t *testing.T) {
	RunJSONMLCases(t, []DiffApplyTestCase{
		{
			"empty diff",
			`["article"]`,
			`["article"]`,
			0,
		},
		{
			"text change",
			`["p", "hello"]`,
			`["p", "world"]`,
			1,
		},
		{
			"attribute addition",
			`["a"]`,
			`["a", {"href": "x"}]`,
			1,
		},
		{
			"insertion between siblings",
			`["ul", ["li", "a"], ["li", "c"]]`,
			`["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`,
			1,
		},
		{
			"removal of a sibling run",
			`["ul", ["li", "a"], ["li", "b"], ["li", "c"], ["li", "d"]]`,
			`["ul", ["li", "a"], ["li", "d"]]`,
			1,
		},
		{
			"reorder becomes remove plus insert",
			`["ul", ["li", "a"], ["li", "b"]]`,
			`["ul", ["li", "b"], ["li", "a"]]`,
			-1,
		},
		{
			"deep edit",
			`["article", ["sec", ["p", "one"], ["p", "two"]], ["sec", ["p", "three"]]]`,
			`["article", ["sec", ["p", "one"], ["p", "2"]], ["sec", ["p", "three"], ["p", "four"]]]`,
			-1,
		},
		{
			"everything changes",
			`["ol", ["x"]]`,
			`["ul", ["li", "a"], ["li", "b"]]`,
			-1,
		},
	})
}

func TestContextResolutionInDivergedTarget(t *testing.T) {
	ctx := context.Background()
	fam := JSONML()
	dd := New()

	src := decodeJSON(t, `["ul", ["li", "a"], ["li", "c"]]`)
	dst := decodeJSON(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)
	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}

	// the target gained an unrelated trailing item; context still
	// pins the insert in front of the c item
	target := decodeJSON(t, `["ul", ["li", "a"], ["li", "c"], ["li", "d"]]`)
	got, _, err := dd.Apply(ctx, fam, target, patch)
	if err != nil {
		t.Fatal(err)
	}
	want := decodeJSON(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"], ["li", "d"]]`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diverged apply mismatch (-want +got):\n%s", diff)
	}
}

func TestResolutionFailureLeavesTargetUntouched(t *testing.T) {
	ctx := context.Background()
	fam := JSONML()
	dd := New()

	src := decodeJSON(t, `["ul", ["li", "a"], ["li", "c"]]`)
	dst := decodeJSON(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)
	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}

	target := decodeJSON(t, `["ol", ["x"]]`)
	if _, _, err := dd.Apply(ctx, fam, target, patch); !errors.Is(err, delta.ErrResolutionFailed) {
		t.Fatalf("expected ErrResolutionFailed, got %v", err)
	}
	// the payload itself was never mutated: applying renders a copy
	if diff := cmp.Diff(decodeJSON(t, `["ol", ["x"]]`), target); diff != "" {
		t.Errorf("failed apply modified the target (-want +got):\n%s", diff)
	}
}

func TestPatchWireRoundTrips(t *testing.T) {
	ctx := context.Background()
	fam := JSONML()
	dd := New()

	src := decodeJSON(t, `["ul", ["li", "a"], ["li", "c"]]`)
	dst := decodeJSON(t, `["ul", ["li", "a"], ["li", {"class": "new"}, "b"], ["li", "c"]]`)
	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("jsonml format", func(t *testing.T) {
		text, err := MarshalPatchJSON(patch, fam)
		if err != nil {
			t.Fatal(err)
		}
		decoded, err := UnmarshalPatchJSON(text, fam)
		if err != nil {
			t.Fatal(err)
		}
		got, _, err := dd.Apply(ctx, fam, src, decoded)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(dst, got); diff != "" {
			t.Errorf("apply after wire round trip (-want +got):\n%s", diff)
		}
	})

	t.Run("xml format", func(t *testing.T) {
		text, err := MarshalPatchXML(patch, fam)
		if err != nil {
			t.Fatal(err)
		}
		decoded, err := UnmarshalPatchXML(text, fam)
		if err != nil {
			t.Fatal(err)
		}
		got, _, err := dd.Apply(ctx, fam, src, decoded)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(dst, got); diff != "" {
			t.Errorf("apply after wire round trip (-want +got):\n%s", diff)
		}
	})
}

func TestFingerprintWireFormat(t *testing.T) {
	cases := []struct {
		description string
		fp          []uint32
		expect      string
	}{
		{"all zero", []uint32{0, 0, 0, 0}, ";;;"},
		{"mixed", []uint32{0, 0xab12, 0, 0x34}, ";ab12;;34"},
		{"single", []uint32{0xdeadbeef}, "deadbeef"},
	}
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			got := FormatFingerprint(tc.fp)
			if got != tc.expect {
				t.Fatalf("format: got %q, want %q", got, tc.expect)
			}
			back, err := ParseFingerprint(got)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.fp, back); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := ParseFingerprint("xyz;1"); err == nil {
		t.Errorf("expected an error for non-hex entries")
	}
}

func TestJSONFamilyEndToEnd(t *testing.T) {
	ctx := context.Background()
	fam := JSON()
	dd := New()

	src := decodeJSON(t, `{"a": 100, "baz": {"a": {"d": "apples-and-oranges"}}}`)
	dst := decodeJSON(t, `{"a": 99, "baz": {"a": {"d": "apples-and-oranges"}, "e": "dogecoin"}}`)

	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if patch.Len() == 0 {
		t.Fatal("expected operations")
	}

	// through the wire and back
	text, err := MarshalPatchJSON(patch, fam)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalPatchJSON(text, fam)
	if err != nil {
		t.Fatal(err)
	}

	got, _, err := dd.Apply(ctx, fam, src, decoded)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(dst, got); diff != "" {
		t.Errorf("apply mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLFamilyEndToEnd(t *testing.T) {
	ctx := context.Background()
	fam := XML()
	dd := New()

	parse := func(s string) interface{} {
		doc, err := fam.Payload.ParseString(s)
		if err != nil {
			t.Fatal(err)
		}
		return doc
	}
	serialize := func(doc interface{}) string {
		s, err := fam.Payload.SerializeToString(doc)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	src := parse(`<html><head></head><body><ul><li>a</li><li>c</li></ul></body></html>`)
	dst := parse(`<html><head></head><body><ul><li>a</li><li>b</li><li>c</li></ul></body></html>`)

	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}

	text, err := MarshalPatchXML(patch, fam)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalPatchXML(text, fam)
	if err != nil {
		t.Fatal(err)
	}

	got, _, err := dd.Apply(ctx, fam, src, decoded)
	if err != nil {
		t.Fatal(err)
	}
	if serialize(got) != serialize(dst) {
		t.Errorf("apply mismatch:\ngot  %s\nwant %s", serialize(got), serialize(dst))
	}
}

func TestStatsCollection(t *testing.T) {
	ctx := context.Background()
	fam := JSONML()

	var st Stats
	dd := New(OptionSetStats(&st))
	src := decodeJSON(t, `["ul", ["li", "a"], ["li", "c"]]`)
	dst := decodeJSON(t, `["ul", ["li", {"id": "1"}, "a"], ["li", "b"], ["li", "c"]]`)
	if _, err := dd.Diff(ctx, fam, src, dst); err != nil {
		t.Fatal(err)
	}

	if st.LeftNodes != 5 {
		t.Errorf("left nodes: got %d, want 5", st.LeftNodes)
	}
	if st.RightNodes != 7 {
		t.Errorf("right nodes: got %d, want 7", st.RightNodes)
	}
	if st.NodeUpdates != 1 {
		t.Errorf("node updates: got %d, want 1", st.NodeUpdates)
	}
	if st.ForestUpdates != 1 {
		t.Errorf("forest updates: got %d, want 1", st.ForestUpdates)
	}
	if st.Inserted != 2 || st.Removed != 0 {
		t.Errorf("forest node counts: -%d +%d", st.Removed, st.Inserted)
	}
	if st.NodeChange() != 2 {
		t.Errorf("node change: got %d, want 2", st.NodeChange())
	}
}

func TestFamilyForMIME(t *testing.T) {
	cases := []struct {
		description string
		mime        string
		family      string
		wantErr     bool
	}{
		{"json", "application/json", "json", false},
		{"json with charset", "application/json; charset=utf-8", "json", false},
		{"xml", "application/xml", "xml", false},
		{"svg", "image/svg+xml", "xml", false},
		{"html", "text/html", "xml", false},
		{"jsonml", "application/jsonml+json", "jsonml", false},
		{"unsupported", "application/octet-stream", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			fam, err := FamilyForMIME(tc.mime)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsupportedType) {
					t.Fatalf("expected ErrUnsupportedType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if fam.Name != tc.family {
				t.Errorf("got family %q, want %q", fam.Name, tc.family)
			}
		})
	}
}

func TestFormatPretty(t *testing.T) {
	ctx := context.Background()
	fam := JSONML()
	dd := New()

	src := decodeJSON(t, `["ul", ["li", "a"], ["li", "c"]]`)
	dst := decodeJSON(t, `["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)
	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}

	out, err := FormatPrettyString(patch, false)
	if err != nil {
		t.Fatal(err)
	}
	if out != "± 1: -0 +2\n" {
		t.Errorf("unexpected report: %q", out)
	}
}

func TestApplyDoesNotMutateInputs(t *testing.T) {
	ctx := context.Background()
	fam := JSONML()
	dd := New()

	src := decodeJSON(t, `["p", "hello"]`)
	pristine := decodeJSON(t, `["p", "hello"]`)
	dst := decodeJSON(t, `["p", "world"]`)

	patch, err := dd.Diff(ctx, fam, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := dd.Apply(ctx, fam, src, patch); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(src, pristine) {
		t.Errorf("apply mutated the input payload: %v", src)
	}
}
