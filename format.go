package treedelta

import (
	"bytes"
	"fmt"
	"io"

	"github.com/treedelta/treedelta/delta"
)

// FormatPrettyString is a convenience wrapper that outputs to a
// string instead of an io.Writer
func FormatPrettyString(p *Patch, colorTTY bool) (string, error) {
	buf := &bytes.Buffer{}
	if err := FormatPretty(buf, p, colorTTY); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatPretty writes a text report of the patch to w. if colorTTY is
// true it will add
// blue "~" for node-content changes
// yellow "±" forest lines with their insert & remove counts
func FormatPretty(w io.Writer, p *Patch, colorTTY bool) error {
	var (
		nodeColor, forestColor, closeColor string
	)
	if colorTTY {
		nodeColor = "\x1b[34m"   // blue
		forestColor = "\x1b[33m" // yellow
		closeColor = "\x1b[0m"
	}

	for _, op := range p.Ops {
		path := op.PathString()
		if path == "" {
			path = "/"
		}
		switch op.Kind {
		case delta.UpdateNode:
			fmt.Fprintf(w, "%s~ %s: %q => %q%s\n",
				nodeColor, path, op.Remove[0].Value, op.Insert[0].Value, closeColor)
		case delta.UpdateForest:
			removed, inserted := 0, 0
			for _, r := range op.Remove {
				removed += r.Size()
			}
			for _, in := range op.Insert {
				inserted += in.Size()
			}
			fmt.Fprintf(w, "%s± %s: -%d +%d%s\n",
				forestColor, path, removed, inserted, closeColor)
		}
	}
	return nil
}

// FormatPrettyStats prints a string of stats info
func FormatPrettyStats(st *Stats) string {
	if st == nil {
		return "<nil>"
	}

	buf := &bytes.Buffer{}

	change := st.NodeChange()
	sign := "+"
	if change <= 0 {
		sign = ""
	}
	elementsWord := "nodes"
	if change == 1 || change == -1 {
		elementsWord = "node"
	}
	fmt.Fprintf(buf, "%s%d %s.", sign, change, elementsWord)

	updatesWord := "updates"
	if st.NodeUpdates == 1 {
		updatesWord = "update"
	}
	fmt.Fprintf(buf, " %d %s.", st.NodeUpdates, updatesWord)

	forestsWord := "forests"
	if st.ForestUpdates == 1 {
		forestsWord = "forest"
	}
	fmt.Fprintf(buf, " %d %s (-%d +%d).", st.ForestUpdates, forestsWord, st.Removed, st.Inserted)

	buf.WriteRune('\n')
	return buf.String()
}
