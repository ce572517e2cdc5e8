package treedelta

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/treedelta/treedelta/delta"
	"github.com/treedelta/treedelta/jsonml"
	"github.com/treedelta/treedelta/tree"
	"github.com/treedelta/treedelta/xmltree"
)

// EncodePatch renders a patch as its wire value: a JsonML "delta"
// element with one child element per operation, each carrying the
// path attribute and head context, remove, insert, tail context
// children in that order. Remove and insert forests are embedded
// through the family's fragment adapter.
func EncodePatch(p *Patch, fam Family) (interface{}, error) {
	doc := []interface{}{"delta"}
	for i, op := range p.Ops {
		deep := op.Kind == delta.UpdateForest
		removeFrag, err := fam.Fragments.Adapt(op.Remove, deep)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		insertFrag, err := fam.Fragments.Adapt(op.Insert, deep)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		doc = append(doc, []interface{}{
			op.Kind.String(),
			map[string]interface{}{"path": op.PathString()},
			[]interface{}{"context", FormatFingerprint(op.Head)},
			append([]interface{}{"remove"}, removeFrag...),
			append([]interface{}{"insert"}, insertFrag...),
			[]interface{}{"context", FormatFingerprint(op.Tail)},
		})
	}
	return doc, nil
}

// DecodePatch parses a wire value produced by EncodePatch.
func DecodePatch(v interface{}, fam Family) (*Patch, error) {
	root, ok := v.([]interface{})
	if !ok || len(root) == 0 {
		return nil, fmt.Errorf("%w: patch root is %T", ErrUnsupportedType, v)
	}
	if tag, _ := root[0].(string); tag != "delta" {
		return nil, fmt.Errorf("%w: patch root %v", ErrUnsupportedType, root[0])
	}

	p := &Patch{}
	for i, opv := range root[1:] {
		op, err := decodeOperation(opv, fam)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		p.Ops = append(p.Ops, op)
	}
	return p, nil
}

func decodeOperation(v interface{}, fam Family) (*delta.Operation, error) {
	el, ok := v.([]interface{})
	if !ok || len(el) != 6 {
		return nil, fmt.Errorf("%w: malformed operation element", ErrUnsupportedType)
	}
	tag, _ := el[0].(string)
	kind, err := delta.KindFromString(tag)
	if err != nil {
		return nil, err
	}
	attrs, ok := el[1].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: operation without attributes", ErrUnsupportedType)
	}
	pathAttr, _ := attrs["path"].(string)
	path, err := delta.ParsePath(pathAttr)
	if err != nil {
		return nil, err
	}

	head, err := decodeContext(el[2])
	if err != nil {
		return nil, err
	}
	remove, err := decodeForest(el[3], "remove", fam)
	if err != nil {
		return nil, err
	}
	insert, err := decodeForest(el[4], "insert", fam)
	if err != nil {
		return nil, err
	}
	tail, err := decodeContext(el[5])
	if err != nil {
		return nil, err
	}

	return &delta.Operation{
		Kind:   kind,
		Path:   path,
		Remove: remove,
		Insert: insert,
		Head:   head,
		Tail:   tail,
	}, nil
}

func decodeContext(v interface{}) ([]uint32, error) {
	el, ok := v.([]interface{})
	if !ok || len(el) == 0 {
		return nil, fmt.Errorf("%w: malformed context element", ErrUnsupportedType)
	}
	if tag, _ := el[0].(string); tag != "context" {
		return nil, fmt.Errorf("%w: %v where context expected", ErrUnsupportedType, el[0])
	}
	if len(el) == 1 {
		return nil, nil
	}
	text, ok := el[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: context without text", ErrUnsupportedType)
	}
	return ParseFingerprint(text)
}

func decodeForest(v interface{}, tag string, fam Family) ([]*tree.Node, error) {
	el, ok := v.([]interface{})
	if !ok || len(el) == 0 {
		return nil, fmt.Errorf("%w: malformed %s element", ErrUnsupportedType, tag)
	}
	if t, _ := el[0].(string); t != tag {
		return nil, fmt.Errorf("%w: %v where %s expected", ErrUnsupportedType, el[0], tag)
	}
	return fam.Fragments.Import(el[1:])
}

// FormatFingerprint renders fingerprint entries as semicolon-joined
// lowercase hex; zero entries are empty.
func FormatFingerprint(fp []uint32) string {
	parts := make([]string, len(fp))
	for i, h := range fp {
		if h != 0 {
			parts[i] = strconv.FormatUint(uint64(h), 16)
		}
	}
	return strings.Join(parts, ";")
}

// ParseFingerprint parses FormatFingerprint's output.
func ParseFingerprint(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	fp := make([]uint32, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		h, err := strconv.ParseUint(p, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("treedelta: bad fingerprint entry %q", p)
		}
		fp[i] = uint32(h)
	}
	return fp, nil
}

// MarshalPatchJSON serializes a patch in the JsonML patch format.
func MarshalPatchJSON(p *Patch, fam Family) (string, error) {
	v, err := EncodePatch(p, fam)
	if err != nil {
		return "", err
	}
	return jsonml.PayloadHandler{}.SerializeToString(v)
}

// UnmarshalPatchJSON parses a JsonML-format patch.
func UnmarshalPatchJSON(s string, fam Family) (*Patch, error) {
	v, err := jsonml.PayloadHandler{}.ParseString(s)
	if err != nil {
		return nil, err
	}
	return DecodePatch(v, fam)
}

// MarshalPatchXML serializes a patch in the XML patch format.
func MarshalPatchXML(p *Patch, fam Family) (string, error) {
	v, err := EncodePatch(p, fam)
	if err != nil {
		return "", err
	}
	dn, err := xmltree.FromJSONML(v)
	if err != nil {
		return "", err
	}
	return xmltree.PayloadHandler{}.SerializeToString(dn)
}

// UnmarshalPatchXML parses an XML-format patch.
func UnmarshalPatchXML(s string, fam Family) (*Patch, error) {
	v, err := xmltree.ParseToJSONML(s, "delta")
	if err != nil {
		return nil, err
	}
	return DecodePatch(v, fam)
}
