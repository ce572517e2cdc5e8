// Package xmltree is the markup document family: documents are
// *html.Node trees parsed and rendered with golang.org/x/net/html.
// Elements and text nodes participate in diffing; comments and
// doctypes are dropped during adaptation.
package xmltree

import (
	"bytes"
	"fmt"
	"hash"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/treedelta/treedelta/tree"
)

// Adapter converts DOM payloads to generic trees and back.
type Adapter struct{}

// AdaptDocument builds a tree over doc, which must be an *html.Node.
// Document, element and text nodes are adapted; other node kinds are
// skipped.
func (a Adapter) AdaptDocument(doc interface{}) (*tree.Node, error) {
	dn, ok := doc.(*html.Node)
	if !ok {
		return nil, fmt.Errorf("xmltree: unexpected document type %T", doc)
	}
	n := adaptNode(dn)
	if n == nil {
		return nil, fmt.Errorf("xmltree: document root is not an element")
	}
	return n, nil
}

func adaptNode(dn *html.Node) *tree.Node {
	var value string
	switch dn.Type {
	case html.DocumentNode:
		value = "#document"
	case html.ElementNode:
		value = elementValue(dn)
	case html.TextNode:
		value = dn.Data
	default:
		return nil
	}
	n := tree.NewNode(value, dn)
	for c := dn.FirstChild; c != nil; c = c.NextSibling {
		if child := adaptNode(c); child != nil {
			n.Append(child)
		}
	}
	return n
}

// RenderDocument rebuilds a fresh DOM from a tree. Shallow fields
// come from each node's payload reference, structure from the tree.
func (a Adapter) RenderDocument(root *tree.Node) (interface{}, error) {
	return renderNode(root)
}

func renderNode(n *tree.Node) (*html.Node, error) {
	src, ok := n.Data.(*html.Node)
	if !ok {
		return nil, fmt.Errorf("xmltree: node %q has payload %T", n.Value, n.Data)
	}
	out := &html.Node{
		Type:     src.Type,
		DataAtom: src.DataAtom,
		Data:     src.Data,
		Attr:     append([]html.Attribute(nil), src.Attr...),
	}
	for _, c := range n.Children {
		rc, err := renderNode(c)
		if err != nil {
			return nil, err
		}
		out.AppendChild(rc)
	}
	return out, nil
}

// Hasher feeds DOM node content into the hash protocol.
type Hasher struct{}

func (Hasher) HashNode(n *tree.Node, h hash.Hash32) {
	dn, ok := n.Data.(*html.Node)
	if !ok || dn.Type == html.TextNode {
		h.Write(tree.HashTagText)
		h.Write([]byte(n.Value))
		h.Write(tree.HashSeparator)
		return
	}
	h.Write(tree.HashTagElement)
	h.Write([]byte(dn.Data))
	h.Write(tree.HashSeparator)
	for _, a := range sortedAttrs(dn.Attr) {
		h.Write(tree.HashTagAttribute)
		h.Write([]byte(a.Key))
		h.Write(tree.HashSeparator)
		h.Write([]byte(a.Val))
		h.Write(tree.HashSeparator)
	}
}

// PayloadHandler parses and renders markup text.
type PayloadHandler struct{}

// ParseString parses markup into a document node, normalizing the
// tree the way browsers do.
func (PayloadHandler) ParseString(s string) (interface{}, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("xmltree: %w", err)
	}
	return doc, nil
}

func (PayloadHandler) SerializeToString(doc interface{}) (string, error) {
	dn, ok := doc.(*html.Node)
	if !ok {
		return "", fmt.Errorf("xmltree: unexpected document type %T", doc)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, dn); err != nil {
		return "", fmt.Errorf("xmltree: %w", err)
	}
	return buf.String(), nil
}

func (PayloadHandler) CreateDocument() interface{} {
	return &html.Node{Type: html.DocumentNode}
}

// FragmentAdapter embeds tree forests into patch payloads as JsonML
// values: markup fragments convert structurally, so a markup patch
// carries its fragments as native elements.
type FragmentAdapter struct{}

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
	dn, ok := n.Data.(*html.Node)
	if !ok {
		return nil, fmt.Errorf("xmltree: node %q has payload %T", n.Value, n.Data)
	}
	switch dn.Type {
	case html.TextNode:
		return n.Value, nil
	case html.ElementNode, html.DocumentNode:
		tag := dn.Data
		if dn.Type == html.DocumentNode {
			tag = "#document"
		}
		out := []interface{}{tag}
		if len(dn.Attr) > 0 {
			m := make(map[string]interface{}, len(dn.Attr))
			for _, a := range dn.Attr {
				m[a.Key] = a.Val
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
	default:
		return nil, fmt.Errorf("xmltree: cannot adapt node kind %d", dn.Type)
	}
}

// Import converts fragment values back into parentless trees backed
// by fresh DOM nodes.
func (FragmentAdapter) Import(fragment []interface{}) ([]*tree.Node, error) {
	out := make([]*tree.Node, 0, len(fragment))
	for _, v := range fragment {
		dn, err := FromJSONML(v)
		if err != nil {
			return nil, err
		}
		n := adaptNode(dn)
		if n == nil {
			return nil, fmt.Errorf("xmltree: fragment value %v adapts to nothing", v)
		}
		out = append(out, n)
	}
	return out, nil
}

// FromJSONML converts a JsonML value into a detached DOM subtree.
func FromJSONML(v interface{}) (*html.Node, error) {
	switch x := v.(type) {
	case string:
		return &html.Node{Type: html.TextNode, Data: x}, nil
	case []interface{}:
		if len(x) == 0 {
			return nil, fmt.Errorf("xmltree: empty element")
		}
		tag, ok := x[0].(string)
		if !ok {
			return nil, fmt.Errorf("xmltree: element tag is %T, want string", x[0])
		}
		rest := x[1:]
		dn := &html.Node{Type: html.ElementNode, Data: tag}
		if tag == "#document" {
			dn = &html.Node{Type: html.DocumentNode}
		}
		if len(rest) > 0 {
			if m, ok := rest[0].(map[string]interface{}); ok {
				for _, k := range sortedMapKeys(m) {
					dn.Attr = append(dn.Attr, html.Attribute{Key: k, Val: fmt.Sprintf("%v", m[k])})
				}
				rest = rest[1:]
			}
		}
		for _, c := range rest {
			cn, err := FromJSONML(c)
			if err != nil {
				return nil, err
			}
			dn.AppendChild(cn)
		}
		return dn, nil
	default:
		return nil, fmt.Errorf("xmltree: unexpected value type %T", v)
	}
}

// ToJSONML converts a DOM subtree into a JsonML value. Comment and
// doctype nodes are dropped.
func ToJSONML(dn *html.Node) (interface{}, error) {
	switch dn.Type {
	case html.TextNode:
		return dn.Data, nil
	case html.ElementNode, html.DocumentNode:
		tag := dn.Data
		if dn.Type == html.DocumentNode {
			tag = "#document"
		}
		out := []interface{}{tag}
		if len(dn.Attr) > 0 {
			m := make(map[string]interface{}, len(dn.Attr))
			for _, a := range dn.Attr {
				m[a.Key] = a.Val
			}
			out = append(out, m)
		}
		for c := dn.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.TextNode && c.Type != html.ElementNode {
				continue
			}
			cv, err := ToJSONML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("xmltree: cannot convert node kind %d", dn.Type)
	}
}

// ParseToJSONML parses markup, locates the first element with the
// given tag and converts it to a JsonML value.
func ParseToJSONML(s, tag string) (interface{}, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("xmltree: %w", err)
	}
	el := FindElement(doc, tag)
	if el == nil {
		return nil, fmt.Errorf("xmltree: no %q element", tag)
	}
	return ToJSONML(el)
}

// FindElement locates the first element with the given tag in a
// parsed document, depth first.
func FindElement(dn *html.Node, tag string) *html.Node {
	if dn.Type == html.ElementNode && dn.Data == tag {
		return dn
	}
	for c := dn.FirstChild; c != nil; c = c.NextSibling {
		if found := FindElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func elementValue(dn *html.Node) string {
	if len(dn.Attr) == 0 {
		return dn.Data
	}
	var b strings.Builder
	b.WriteString(dn.Data)
	for _, a := range sortedAttrs(dn.Attr) {
		b.WriteByte(0)
		b.WriteString(a.Key)
		b.WriteByte(0)
		b.WriteString(a.Val)
	}
	return b.String()
}

func sortedAttrs(attrs []html.Attribute) []html.Attribute {
	out := append([]html.Attribute(nil), attrs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func sortedMapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
