// Package jsontree is the plain-JSON document family: documents are
// the values produced by unmarshaling JSON into interface{}, the two
// compound types map[string]interface{} and []interface{} plus the
// scalars string, float64, bool and nil. Object members become
// key-labelled interior nodes in ascending key order so that member
// identity survives sibling churn; array elements are positional.
package jsontree

import (
	"encoding/json"
	"fmt"
	"hash"
	"sort"
	"strconv"

	"github.com/treedelta/treedelta/tree"
)

// member is the payload reference of an object-member node.
type member struct {
	Key string
}

const (
	objectValue = "{}"
	arrayValue  = "[]"
)

// Adapter converts decoded JSON values to generic trees and back.
type Adapter struct{}

// AdaptDocument builds a tree over doc. Object keys are visited in
// ascending order for stable hashing.
func (a Adapter) AdaptDocument(doc interface{}) (*tree.Node, error) {
	switch x := doc.(type) {
	case map[string]interface{}:
		n := tree.NewNode(objectValue, x)
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := tree.NewNode(k, member{Key: k})
			val, err := a.AdaptDocument(x[k])
			if err != nil {
				return nil, err
			}
			m.Append(val)
			if err := n.Append(m); err != nil {
				return nil, err
			}
		}
		return n, nil
	case []interface{}:
		n := tree.NewNode(arrayValue, x)
		for _, v := range x {
			child, err := a.AdaptDocument(v)
			if err != nil {
				return nil, err
			}
			if err := n.Append(child); err != nil {
				return nil, err
			}
		}
		return n, nil
	case string, float64, bool, nil:
		return tree.NewNode(scalarString(x), x), nil
	default:
		return nil, fmt.Errorf("jsontree: unexpected value type %T", doc)
	}
}

// RenderDocument rebuilds a JSON value from a tree.
func (a Adapter) RenderDocument(root *tree.Node) (interface{}, error) {
	switch root.Data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(root.Children))
		for _, m := range root.Children {
			if _, ok := m.Data.(member); !ok {
				return nil, fmt.Errorf("jsontree: object child %q is not a member", m.Value)
			}
			if len(m.Children) != 1 {
				return nil, fmt.Errorf("jsontree: member %q has %d values", m.Value, len(m.Children))
			}
			v, err := a.RenderDocument(m.Children[0])
			if err != nil {
				return nil, err
			}
			out[m.Value] = v
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, 0, len(root.Children))
		for _, c := range root.Children {
			v, err := a.RenderDocument(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case member:
		return nil, fmt.Errorf("jsontree: member %q outside an object", root.Value)
	default:
		return root.Data, nil
	}
}

// Hasher feeds JSON node content into the hash protocol: compounds
// and members as elements and attributes, scalars as text.
type Hasher struct{}

func (Hasher) HashNode(n *tree.Node, h hash.Hash32) {
	switch n.Data.(type) {
	case map[string]interface{}, []interface{}:
		h.Write(tree.HashTagElement)
		h.Write([]byte(n.Value))
		h.Write(tree.HashSeparator)
	case member:
		h.Write(tree.HashTagAttribute)
		h.Write([]byte(n.Value))
		h.Write(tree.HashSeparator)
	default:
		h.Write(tree.HashTagText)
		h.Write([]byte(n.Value))
		h.Write(tree.HashSeparator)
	}
}

// PayloadHandler parses and serializes JSON documents.
type PayloadHandler struct{}

func (PayloadHandler) ParseString(s string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("jsontree: %w", err)
	}
	return v, nil
}

func (PayloadHandler) SerializeToString(doc interface{}) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("jsontree: %w", err)
	}
	return string(data), nil
}

func (PayloadHandler) CreateDocument() interface{} {
	return map[string]interface{}{}
}

// fragment is the self-describing wire form of one exported node.
type fragment struct {
	Type     string      `json:"t"`
	Key      string      `json:"k,omitempty"`
	Value    interface{} `json:"v"`
	Children []fragment  `json:"c,omitempty"`
}

// FragmentAdapter embeds tree forests into patch payloads in foreign
// mode: each fragment serializes to a JSON string, since JSON values
// cannot be spliced into a markup patch structurally.
type FragmentAdapter struct{}

func (f FragmentAdapter) Adapt(nodes []*tree.Node, deep bool) ([]interface{}, error) {
	out := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		frag, err := adaptFragment(n, deep)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(frag)
		if err != nil {
			return nil, fmt.Errorf("jsontree: %w", err)
		}
		out = append(out, string(data))
	}
	return out, nil
}

func adaptFragment(n *tree.Node, deep bool) (fragment, error) {
	var frag fragment
	switch n.Data.(type) {
	case map[string]interface{}:
		frag.Type = "object"
	case []interface{}:
		frag.Type = "array"
	case member:
		frag.Type = "member"
		frag.Key = n.Value
	default:
		return fragment{Type: "scalar", Value: n.Data}, nil
	}
	if deep {
		for _, c := range n.Children {
			cf, err := adaptFragment(c, true)
			if err != nil {
				return fragment{}, err
			}
			frag.Children = append(frag.Children, cf)
		}
	}
	return frag, nil
}

func (f FragmentAdapter) Import(values []interface{}) ([]*tree.Node, error) {
	out := make([]*tree.Node, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("jsontree: fragment is %T, want string", v)
		}
		var frag fragment
		if err := json.Unmarshal([]byte(s), &frag); err != nil {
			return nil, fmt.Errorf("jsontree: %w", err)
		}
		n, err := importFragment(frag)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func importFragment(frag fragment) (*tree.Node, error) {
	var n *tree.Node
	switch frag.Type {
	case "object":
		n = tree.NewNode(objectValue, map[string]interface{}(nil))
	case "array":
		n = tree.NewNode(arrayValue, []interface{}(nil))
	case "member":
		n = tree.NewNode(frag.Key, member{Key: frag.Key})
	case "scalar":
		return tree.NewNode(scalarString(frag.Value), frag.Value), nil
	default:
		return nil, fmt.Errorf("jsontree: unknown fragment type %q", frag.Type)
	}
	for _, cf := range frag.Children {
		c, err := importFragment(cf)
		if err != nil {
			return nil, err
		}
		if err := n.Append(c); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// scalarString formats scalar content the way the document encodes
// it, floats in shortest form.
func scalarString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}
