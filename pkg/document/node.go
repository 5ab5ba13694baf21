// Package document converts XML element trees into an ordered tree of
// scalars, sequences and mappings.
//
// Conversion follows the widely used "xmltodict" shape:
//
//   - the result is a mapping keyed by the root element's qualified name
//   - an element without attributes and child elements becomes a scalar
//     holding its whitespace-trimmed text
//   - any other element becomes a mapping: attributes first, keyed "@name",
//     then child elements in document order, then non-blank text as "#text"
//   - sibling elements with the same qualified name collapse into one
//     sequence stored at the position of the first occurrence
//
// Qualified names keep the prefix exactly as written in the source.
package document

import (
	"bytes"
	"encoding/json"
)

// Kind identifies the variant held by a Node
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Key prefixes and names used by the converter
const (
	AttrPrefix = "@"
	TextKey    = "#text"
)

// Node is one value of a converted document
type Node struct {
	kind   Kind
	text   string
	items  []*Node
	keys   []string
	values map[string]*Node
}

// Pair is a key and value of a mapping
type Pair struct {
	Key   string
	Value *Node
}

// Scalar creates a text node
func Scalar(text string) *Node {
	return &Node{kind: KindScalar, text: text}
}

// Sequence creates a sequence node
func Sequence(items ...*Node) *Node {
	return &Node{kind: KindSequence, items: append([]*Node(nil), items...)}
}

// Mapping creates a mapping node holding pairs in order. A repeated key
// replaces the earlier value in place.
func Mapping(pairs ...Pair) *Node {
	n := newMapping()
	for _, p := range pairs {
		n.set(p.Key, p.Value)
	}
	return n
}

func newMapping() *Node {
	return &Node{kind: KindMapping, values: make(map[string]*Node)}
}

func (n *Node) set(key string, v *Node) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = v
}

// add stores v under key, turning a repeated key into a sequence
func (n *Node) add(key string, v *Node) {
	existing, ok := n.values[key]
	switch {
	case !ok:
		n.set(key, v)
	case existing.kind == KindSequence:
		existing.items = append(existing.items, v)
	default:
		n.values[key] = Sequence(existing, v)
	}
}

// Kind returns the variant held by n
func (n *Node) Kind() Kind {
	return n.kind
}

// Text returns the text of a scalar, or the "#text" entry of a mapping
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	switch n.kind {
	case KindScalar:
		return n.text
	case KindMapping:
		if t, ok := n.values[TextKey]; ok {
			return t.Text()
		}
	}
	return ""
}

// Items returns the elements of a sequence. Any other node is returned as a
// one-element list, so a tag that occurred once reads the same as a repeated one.
func (n *Node) Items() []*Node {
	if n == nil {
		return nil
	}
	if n.kind == KindSequence {
		return append([]*Node(nil), n.items...)
	}
	return []*Node{n}
}

// Keys returns the keys of a mapping in document order
func (n *Node) Keys() []string {
	if n == nil || n.kind != KindMapping {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Len returns the number of items of a sequence or entries of a mapping
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.keys)
	default:
		return 1
	}
}

// Get returns the value stored under key in a mapping
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != KindMapping {
		return nil, false
	}
	v, ok := n.values[key]
	return v, ok
}

// Lookup follows a path of mapping keys. It returns nil when any step is
// missing or not a mapping.
func (n *Node) Lookup(path ...string) *Node {
	cur := n
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// String returns the text found at path and whether a text-bearing node
// exists there
func (n *Node) String(path ...string) (string, bool) {
	v := n.Lookup(path...)
	if v == nil {
		return "", false
	}
	switch v.kind {
	case KindScalar:
		return v.text, true
	case KindMapping:
		if _, ok := v.values[TextKey]; ok {
			return v.Text(), true
		}
	}
	return "", false
}

// MarshalJSON encodes the tree with mapping order preserved
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}

	switch n.kind {
	case KindScalar:
		b, err := json.Marshal(n.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, key := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(b)
			buf.WriteByte(':')
			if err := n.values[key].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
