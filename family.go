package treedelta

import (
	"errors"
	"fmt"
	"strings"

	"github.com/treedelta/treedelta/delta"
	"github.com/treedelta/treedelta/jsonml"
	"github.com/treedelta/treedelta/jsontree"
	"github.com/treedelta/treedelta/tree"
	"github.com/treedelta/treedelta/xmltree"
)

// ErrUnsupportedType is returned for documents of no known family.
var ErrUnsupportedType = errors.New("treedelta: unsupported document type")

// TreeAdapter converts between a family's payload representation and
// the generic tree.
type TreeAdapter interface {
	AdaptDocument(doc interface{}) (*tree.Node, error)
	RenderDocument(root *tree.Node) (interface{}, error)
}

// PayloadHandler parses and serializes a family's documents.
type PayloadHandler interface {
	ParseString(s string) (interface{}, error)
	SerializeToString(doc interface{}) (string, error)
	CreateDocument() interface{}
}

// FragmentAdapter embeds tree forests into patch payloads and
// extracts them again.
type FragmentAdapter interface {
	Adapt(nodes []*tree.Node, deep bool) ([]interface{}, error)
	Import(fragment []interface{}) ([]*tree.Node, error)
}

// Family bundles everything the engine needs to know about one
// concrete document representation.
type Family struct {
	Name      string
	Adapter   TreeAdapter
	Hasher    tree.NodeHasher
	Payload   PayloadHandler
	Fragments FragmentAdapter
	Handlers  delta.HandlerFactory
}

// JSONML is the family of JsonML documents.
func JSONML() Family {
	return Family{
		Name:      "jsonml",
		Adapter:   jsonml.Adapter{},
		Hasher:    jsonml.Hasher{},
		Payload:   jsonml.PayloadHandler{},
		Fragments: jsonml.FragmentAdapter{},
		Handlers:  delta.NewHandlerFactory(),
	}
}

// XML is the family of markup documents backed by x/net/html.
func XML() Family {
	return Family{
		Name:      "xml",
		Adapter:   xmltree.Adapter{},
		Hasher:    xmltree.Hasher{},
		Payload:   xmltree.PayloadHandler{},
		Fragments: xmltree.FragmentAdapter{},
		Handlers:  delta.NewHandlerFactory(),
	}
}

// JSON is the family of plain decoded-JSON documents.
func JSON() Family {
	return Family{
		Name:      "json",
		Adapter:   jsontree.Adapter{},
		Hasher:    jsontree.Hasher{},
		Payload:   jsontree.PayloadHandler{},
		Fragments: jsontree.FragmentAdapter{},
		Handlers:  delta.NewHandlerFactory(),
	}
}

// FamilyForMIME selects a family by MIME type: application/json maps
// to the JSON family, XML and HTML types to the markup family, and
// the JsonML media type to the JsonML family.
func FamilyForMIME(mimeType string) (Family, error) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(strings.ToLower(base))

	switch {
	case base == "application/jsonml+json":
		return JSONML(), nil
	case base == "application/json":
		return JSON(), nil
	case base == "application/xml", base == "text/xml", base == "text/html",
		strings.HasSuffix(base, "+xml"):
		return XML(), nil
	default:
		return Family{}, fmt.Errorf("%w: MIME %q", ErrUnsupportedType, mimeType)
	}
}
