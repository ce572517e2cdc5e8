package jsonml

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/treedelta/treedelta/tree"
)

func decode(t *testing.T, src string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(src), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAdaptRenderRoundTrip(t *testing.T) {
	cases := []struct {
		description string
		src         string
	}{
		{"bare element", `["article"]`},
		{"text child", `["p", "hello"]`},
		{"attributes", `["a", {"href": "x", "rel": "nofollow"}]`},
		{"nested", `["ul", ["li", "a"], ["li", {"class": "sel"}, "b", ["em", "!"]]]`},
	}
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			doc := decode(t, tc.src)
			n, err := Adapter{}.AdaptDocument(doc)
			if err != nil {
				t.Fatal(err)
			}
			back, err := Adapter{}.RenderDocument(n)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(doc, back) {
				t.Errorf("round trip mismatch:\n in: %v\nout: %v", doc, back)
			}
		})
	}
}

func TestAdaptRejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		description string
		src         string
	}{
		{"number payload", `42`},
		{"empty element", `[]`},
		{"non-string tag", `[7, "x"]`},
	}
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			if _, err := (Adapter{}).AdaptDocument(decode(t, tc.src)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestElementValueIncludesAttributes(t *testing.T) {
	plain, err := Adapter{}.AdaptDocument(decode(t, `["a"]`))
	if err != nil {
		t.Fatal(err)
	}
	attributed, err := Adapter{}.AdaptDocument(decode(t, `["a", {"href": "x"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if plain.Value == attributed.Value {
		t.Errorf("attribute change must change the node value")
	}

	// attribute order must not matter
	x := tree.NewNodeHashIndex(Hasher{})
	a1, _ := Adapter{}.AdaptDocument(decode(t, `["a", {"p": "1", "q": "2"}]`))
	a2, _ := Adapter{}.AdaptDocument(decode(t, `["a", {"q": "2", "p": "1"}]`))
	if a1.Value != a2.Value || x.Get(a1) != x.Get(a2) {
		t.Errorf("attribute order leaked into value or hash")
	}
}

func TestHasherSeparatesKinds(t *testing.T) {
	x := tree.NewNodeHashIndex(Hasher{})
	el, _ := Adapter{}.AdaptDocument(decode(t, `["p"]`))
	txt, _ := Adapter{}.AdaptDocument(decode(t, `"p"`))
	if x.Get(el) == x.Get(txt) {
		t.Errorf("element and text with equal content must hash apart")
	}
}

func TestPayloadHandlerRoundTrip(t *testing.T) {
	src := `["ul",["li","a"],["li",{"class":"x"},"b"]]`
	doc, err := PayloadHandler{}.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	out, err := PayloadHandler{}.SerializeToString(doc)
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("got %s, want %s", out, src)
	}

	if _, err := (PayloadHandler{}).ParseString(`{"not": "jsonml"}`); err == nil {
		t.Errorf("expected a validation error")
	}
}

func TestFragmentRoundTrip(t *testing.T) {
	doc := decode(t, `["ul", ["li", "a"], ["li", {"class": "x"}, "b"]]`)
	root, err := Adapter{}.AdaptDocument(doc)
	if err != nil {
		t.Fatal(err)
	}

	frag, err := FragmentAdapter{}.Adapt(root.Children, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{
		[]interface{}{"li", "a"},
		[]interface{}{"li", map[string]interface{}{"class": "x"}, "b"},
	}
	if diff := cmp.Diff(want, frag); diff != "" {
		t.Errorf("fragment mismatch (-want +got):\n%s", diff)
	}

	nodes, err := FragmentAdapter{}.Import(frag)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	for i, n := range nodes {
		if n.Parent != nil {
			t.Errorf("imported node %d has a parent", i)
		}
		if n.Value != root.Children[i].Value {
			t.Errorf("imported node %d value mismatch", i)
		}
	}
}

func TestShallowFragmentDropsChildren(t *testing.T) {
	root, err := Adapter{}.AdaptDocument(decode(t, `["li", {"class": "x"}, "b"]`))
	if err != nil {
		t.Fatal(err)
	}
	frag, err := FragmentAdapter{}.Adapt([]*tree.Node{root}, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{
		[]interface{}{"li", map[string]interface{}{"class": "x"}},
	}
	if diff := cmp.Diff(want, frag); diff != "" {
		t.Errorf("fragment mismatch (-want +got):\n%s", diff)
	}
}
