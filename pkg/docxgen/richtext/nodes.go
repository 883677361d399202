// Package richtext renders SlateJS rich-text JSON into WordprocessingML
// blocks.
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeImageUUID    = "image-uuid"
	TypeImage        = "image"
	TypeCaption      = "caption"
	TypeNumberedList = "numbered-list"
	TypeBulletedList = "bulleted-list"
	TypeTable        = "table"
	TypeTableRow     = "table-row"
	TypeTableCell    = "table-cell"
	TypeParagraph    = "paragraph"
)

const (
	parseErrorText    = "An error occurred during JSON parsing"
	childrenErrorText = "An error occurred while parsing children"
)

// Node is one element of the rich-text tree.
type Node interface {
	node()
}

// Block is any node whose type has no dedicated handler. It renders as a
// paragraph styled through the caller's type mapping.
type Block struct {
	Type     string
	Align    string
	Children []Node
}

type ImageByID struct {
	UUID string
}

type ImageByPath struct {
	Path string
}

type Caption struct {
	Align    string
	Children []Node
}

// List is a numbered or bulleted list. Its children are list items.
type List struct {
	Type     string
	Ordered  bool
	Children []Node
}

// Table keeps every child; rows are picked out when rendering.
type Table struct {
	Children []Node
}

type TableRow struct {
	Children []Node
}

type TableCell struct {
	Align    string
	Children []Node
}

// Text is a leaf carrying character formatting.
type Text struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	Code      bool
}

func (*Block) node()       {}
func (*ImageByID) node()   {}
func (*ImageByPath) node() {}
func (*Caption) node()     {}
func (*List) node()        {}
func (*Table) node()       {}
func (*TableRow) node()    {}
func (*TableCell) node()   {}
func (*Text) node()        {}

// ParseError reports JSON that is not an array of node objects.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid rich-text JSON: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Parse decodes a rich-text document. Elements that are not objects, and
// objects with neither a type nor a text, are dropped.
func Parse(data string) ([]Node, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, &ParseError{Cause: err}
	}
	if raw == nil {
		return nil, &ParseError{Cause: errors.New("document root is null")}
	}
	return parseNodes(raw), nil
}

// ParseOrFallback is Parse with malformed input replaced by a single error
// paragraph.
func ParseOrFallback(data string) ([]Node, error) {
	nodes, err := Parse(data)
	if err != nil {
		return []Node{&Block{Type: TypeParagraph, Children: []Node{&Text{Text: parseErrorText}}}}, err
	}
	return nodes, nil
}

func parseNodes(raw []json.RawMessage) []Node {
	nodes := make([]Node, 0, len(raw))
	for _, r := range raw {
		if n := parseNode(r); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

type object map[string]json.RawMessage

func parseNode(data json.RawMessage) Node {
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil
	}

	nodeType, hasType := obj.str("type")
	if !hasType {
		if text, ok := obj["text"]; ok && !isNull(text) {
			return &Text{
				Text:      scalarText(text),
				Bold:      obj.flag("bold"),
				Italic:    obj.flag("italic"),
				Underline: obj.flag("underline"),
				Strike:    obj.flag("strike"),
				Code:      obj.flag("code"),
			}
		}
		return nil
	}

	align, _ := obj.str("align")
	switch nodeType {
	case TypeImageUUID:
		id, _ := obj.str("image_uuid")
		return &ImageByID{UUID: id}
	case TypeImage:
		path, _ := obj.str("image_path")
		return &ImageByPath{Path: path}
	case TypeCaption:
		return &Caption{Align: align, Children: obj.children()}
	case TypeNumberedList, TypeBulletedList:
		return &List{Type: nodeType, Ordered: nodeType == TypeNumberedList, Children: obj.children()}
	case TypeTable:
		return &Table{Children: obj.optionalChildren()}
	case TypeTableRow:
		return &TableRow{Children: obj.optionalChildren()}
	case TypeTableCell:
		return &TableCell{Align: align, Children: obj.optionalChildren()}
	}
	return &Block{Type: nodeType, Align: align, Children: obj.children()}
}

// str returns a string member. A null or non-string value counts as absent.
func (o object) str(key string) (string, bool) {
	raw, ok := o[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || isNull(raw) {
		return "", false
	}
	return s, true
}

// flag is true only for a JSON true.
func (o object) flag(key string) bool {
	raw, ok := o[key]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

// children decodes the children array, substituting an error text leaf
// when it is missing or unreadable.
func (o object) children() []Node {
	raw, ok := o["children"]
	if !ok {
		return []Node{&Text{Text: childrenErrorText}}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || isNull(raw) {
		return []Node{&Text{Text: childrenErrorText}}
	}
	return parseNodes(items)
}

// optionalChildren decodes the children array, treating anything unreadable
// as empty.
func (o object) optionalChildren() []Node {
	var items []json.RawMessage
	if raw, ok := o["children"]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
	}
	return parseNodes(items)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// scalarText returns string values unquoted and any other JSON value as
// written.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
