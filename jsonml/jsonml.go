// Package jsonml is the JsonML document family: documents are
// []interface{} values of the form [tag, {attributes}?, children...]
// with strings as text nodes. It is also the family patches are
// encoded in on the wire.
package jsonml

import (
	"encoding/json"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/treedelta/treedelta/tree"
)

// Adapter converts JsonML payloads to generic trees and back.
type Adapter struct{}

// AdaptDocument builds a tree over doc. Element nodes keep the
// payload slice as their data reference; text nodes keep the string.
func (a Adapter) AdaptDocument(doc interface{}) (*tree.Node, error) {
	switch x := doc.(type) {
	case string:
		return tree.NewNode(x, x), nil
	case []interface{}:
		tag, attrs, children, err := element(x)
		if err != nil {
			return nil, err
		}
		n := tree.NewNode(elementValue(tag, attrs), x)
		for _, c := range children {
			child, err := a.AdaptDocument(c)
			if err != nil {
				return nil, err
			}
			if err := n.Append(child); err != nil {
				return nil, err
			}
		}
		return n, nil
	default:
		return nil, fmt.Errorf("jsonml: unexpected value type %T", doc)
	}
}

// RenderDocument rebuilds a JsonML value from a tree. Tags and
// attributes come from each node's payload reference, children from
// the tree, so spliced trees render the patched document.
func (a Adapter) RenderDocument(root *tree.Node) (interface{}, error) {
	el, ok := root.Data.([]interface{})
	if !ok {
		// text node
		return root.Value, nil
	}
	tag, attrs, _, err := element(el)
	if err != nil {
		return nil, err
	}
	out := []interface{}{tag}
	if len(attrs) > 0 {
		m := make(map[string]interface{}, len(attrs))
		for k, v := range attrs {
			m[k] = v
		}
		out = append(out, m)
	}
	for _, c := range root.Children {
		rc, err := a.RenderDocument(c)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

// Hasher feeds JsonML node content into the hash protocol:
// element tag and attributes in ascending key order, or text data.
type Hasher struct{}

func (Hasher) HashNode(n *tree.Node, h hash.Hash32) {
	el, ok := n.Data.([]interface{})
	if !ok {
		h.Write(tree.HashTagText)
		h.Write([]byte(n.Value))
		h.Write(tree.HashSeparator)
		return
	}
	tag, attrs, _, err := element(el)
	if err != nil {
		tag = n.Value
	}
	h.Write(tree.HashTagElement)
	h.Write([]byte(tag))
	h.Write(tree.HashSeparator)
	for _, k := range sortedKeys(attrs) {
		h.Write(tree.HashTagAttribute)
		h.Write([]byte(k))
		h.Write(tree.HashSeparator)
		h.Write([]byte(attrs[k]))
		h.Write(tree.HashSeparator)
	}
}

// PayloadHandler parses and serializes JsonML documents as JSON text.
type PayloadHandler struct{}

func (PayloadHandler) ParseString(s string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("jsonml: %w", err)
	}
	if err := validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (PayloadHandler) SerializeToString(doc interface{}) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("jsonml: %w", err)
	}
	return string(data), nil
}

func (PayloadHandler) CreateDocument() interface{} {
	return []interface{}{}
}

// FragmentAdapter embeds tree forests into patch payloads natively:
// fragments are JsonML values themselves.
type FragmentAdapter struct{}

// Adapt converts nodes to JsonML values; deep includes subtrees,
// shallow carries tag and attributes only.
func (f FragmentAdapter) Adapt(nodes []*tree.Node, deep bool) ([]interface{}, error) {
	out := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		v, err := f.adaptNode(n, deep)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f FragmentAdapter) adaptNode(n *tree.Node, deep bool) (interface{}, error) {
	el, ok := n.Data.([]interface{})
	if !ok {
		return n.Value, nil
	}
	tag, attrs, _, err := element(el)
	if err != nil {
		return nil, err
	}
	out := []interface{}{tag}
	if len(attrs) > 0 {
		m := make(map[string]interface{}, len(attrs))
		for k, v := range attrs {
			m[k] = v
		}
		out = append(out, m)
	}
	if deep {
		for _, c := range n.Children {
			cv, err := f.adaptNode(c, true)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
	}
	return out, nil
}

// Import converts fragment values back into parentless trees.
func (f FragmentAdapter) Import(fragment []interface{}) ([]*tree.Node, error) {
	var a Adapter
	out := make([]*tree.Node, 0, len(fragment))
	for _, v := range fragment {
		n, err := a.AdaptDocument(v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// element splits a JsonML element into tag, attributes and children.
func element(el []interface{}) (tag string, attrs map[string]string, children []interface{}, err error) {
	if len(el) == 0 {
		return "", nil, nil, fmt.Errorf("jsonml: empty element")
	}
	tag, ok := el[0].(string)
	if !ok {
		return "", nil, nil, fmt.Errorf("jsonml: element tag is %T, want string", el[0])
	}
	rest := el[1:]
	if len(rest) > 0 {
		if m, ok := rest[0].(map[string]interface{}); ok {
			attrs = make(map[string]string, len(m))
			for k, v := range m {
				attrs[k] = attrString(v)
			}
			rest = rest[1:]
		}
	}
	return tag, attrs, rest, nil
}

func attrString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// elementValue is the canonical content string of an element: the
// tag followed by NUL-joined attributes in ascending key order.
func elementValue(tag string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return tag
	}
	var b strings.Builder
	b.WriteString(tag)
	for _, k := range sortedKeys(attrs) {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(attrs[k])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validate(v interface{}) error {
	switch x := v.(type) {
	case string:
		return nil
	case []interface{}:
		_, _, children, err := element(x)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := validate(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("jsonml: unexpected value type %T", v)
	}
}
