package docx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Namespace URIs used by generated fragments.
const (
	WordNamespace          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	RelationshipNamespace  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	DrawingNamespace       = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	DrawingMainNamespace   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	PictureNamespace       = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	fragmentRootTag        = "w:fragment"
	fragmentRootNamespaces = `xmlns:w="` + WordNamespace + `" xmlns:r="` + RelationshipNamespace +
		`" xmlns:wp="` + DrawingNamespace + `" xmlns:a="` + DrawingMainNamespace +
		`" xmlns:pic="` + PictureNamespace + `"`
)

// ParseFragment parses a sequence of WordprocessingML elements written with
// the conventional prefixes. The returned elements are detached and can be
// inserted into any part tree.
func ParseFragment(fragment string) ([]*etree.Element, error) {
	doc := etree.NewDocument()
	src := "<" + fragmentRootTag + " " + fragmentRootNamespaces + ">" + fragment + "</" + fragmentRootTag + ">"
	if err := doc.ReadFromString(src); err != nil {
		return nil, fmt.Errorf("invalid markup fragment: %w", err)
	}
	root := doc.Root()
	children := root.ChildElements()
	for _, child := range children {
		root.RemoveChild(child)
	}
	return children, nil
}

// ElementXML serializes a single element.
func ElementXML(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

// ElementsXML serializes a sequence of elements back to back.
func ElementsXML(els []*etree.Element) string {
	var b strings.Builder
	for _, el := range els {
		b.WriteString(ElementXML(el))
	}
	return b.String()
}

// Descendants returns the elements below el whose prefixed tag is tag, in
// document order. etree's ".//" selector walks breadth first.
func Descendants(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(parent *etree.Element) {
		for _, child := range parent.ChildElements() {
			if child.FullTag() == tag {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(el)
	return out
}

// ParagraphText returns the concatenated text of every w:t below el, in
// document order.
func ParagraphText(el *etree.Element) string {
	var b strings.Builder
	for _, t := range Descendants(el, "w:t") {
		b.WriteString(t.Text())
	}
	return b.String()
}

// EnsureDocumentNamespaces declares the relationship and drawing prefixes on
// the main document root so that inserted hyperlinks and pictures resolve.
func (p *Package) EnsureDocumentNamespaces() error {
	doc, err := p.Document()
	if err != nil {
		return err
	}
	root := doc.Root()
	for prefix, uri := range map[string]string{
		"w":   WordNamespace,
		"r":   RelationshipNamespace,
		"wp":  DrawingNamespace,
		"a":   DrawingMainNamespace,
		"pic": PictureNamespace,
	} {
		if root.SelectAttr("xmlns:"+prefix) == nil {
			root.CreateAttr("xmlns:"+prefix, uri)
		}
	}
	return nil
}
