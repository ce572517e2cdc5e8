package treedelta

import (
	"github.com/treedelta/treedelta/delta"
)

// Stats holds statistical metadata about a diff
type Stats struct {
	LeftNodes  int `json:"leftNodes"`  // count of nodes in the left tree
	RightNodes int `json:"rightNodes"` // count of nodes in the right tree

	Matched int `json:"matched"` // count of matched node pairs

	NodeUpdates   int `json:"nodeUpdates,omitempty"`   // number of node-content changes
	ForestUpdates int `json:"forestUpdates,omitempty"` // number of sibling-run replacements
	Inserted      int `json:"inserted,omitempty"`      // nodes inserted across all forests
	Removed       int `json:"removed,omitempty"`       // nodes removed across all forests
}

// NodeChange returns a count of the shift between left & right trees
func (s Stats) NodeChange() int {
	return s.RightNodes - s.LeftNodes
}

func (s *Stats) collect(left, right, matched int, ops []*delta.Operation) {
	*s = Stats{LeftNodes: left, RightNodes: right, Matched: matched}
	for _, op := range ops {
		switch op.Kind {
		case delta.UpdateNode:
			s.NodeUpdates++
		case delta.UpdateForest:
			s.ForestUpdates++
			for _, r := range op.Remove {
				s.Removed += r.Size()
			}
			for _, in := range op.Insert {
				s.Inserted += in.Size()
			}
		}
	}
}
