package document

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Convert converts el and its subtree. The result is a mapping with the
// root's qualified name as its only key.
func Convert(el *etree.Element) *Node {
	root := newMapping()
	root.set(el.FullTag(), convertElement(el))
	return root
}

// ConvertBytes parses a single XML document and converts its root element
func ConvertBytes(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parsing document: no root element")
	}
	return Convert(root), nil
}

func convertElement(el *etree.Element) *Node {
	children := el.ChildElements()
	text := strings.TrimSpace(charData(el))

	if len(el.Attr) == 0 && len(children) == 0 {
		return Scalar(text)
	}

	n := newMapping()
	for _, a := range el.Attr {
		n.set(AttrPrefix+a.FullKey(), Scalar(a.Value))
	}
	for _, c := range children {
		n.add(c.FullTag(), convertElement(c))
	}
	if text != "" {
		n.set(TextKey, Scalar(text))
	}
	return n
}

// charData joins the character data directly inside el
func charData(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return b.String()
}
