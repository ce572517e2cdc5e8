package treedelta

import (
	"context"
	"encoding/json"
	"fmt"
)

func Example() {
	// we'll use the background as our execution context
	ctx := context.Background()

	// start with two slightly different JsonML documents
	aJSON := []byte(`["ul", ["li", "a"], ["li", "c"]]`)
	bJSON := []byte(`["ul", ["li", "a"], ["li", "b"], ["li", "c"]]`)

	var a, b interface{}
	if err := json.Unmarshal(aJSON, &a); err != nil {
		panic(err)
	}
	if err := json.Unmarshal(bJSON, &b); err != nil {
		panic(err)
	}

	// create a differ, using the default configuration
	dd := New()
	fam := JSONML()

	patch, err := dd.Diff(ctx, fam, a, b)
	if err != nil {
		panic(err)
	}

	// the patch carries one forest update inserting the new item
	report, err := FormatPrettyString(patch, false)
	if err != nil {
		panic(err)
	}
	fmt.Print(report)

	// applying the patch to a document that diverged from the
	// original still lands the insert in front of the c item
	var diverged interface{}
	if err := json.Unmarshal([]byte(`["ul", ["li", "a"], ["li", "c"], ["li", "d"]]`), &diverged); err != nil {
		panic(err)
	}
	patched, _, err := dd.Apply(ctx, fam, diverged, patch)
	if err != nil {
		panic(err)
	}
	out, err := json.Marshal(patched)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(out))
	// Output:
	// ± 1: -0 +2
	// ["ul",["li","a"],["li","b"],["li","c"],["li","d"]]
}
