// Package wml is a small, marshal-only model of the WordprocessingML
// elements the renderers emit. Element names carry the conventional "w:"
// prefix so the output can be spliced into a document that declares it.
package wml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
)

// Block is a body-level element: a paragraph or a table.
type Block interface {
	isBlock()
}

// Inline is paragraph content: a run or a hyperlink.
type Inline interface {
	isInline()
}

// RunContent is an element allowed inside a run.
type RunContent interface {
	isRunContent()
}

// Val is the common w:val attribute carrier.
type Val struct {
	Val string `xml:"w:val,attr"`
}

// Paragraph represents a w:p element.
type Paragraph struct {
	XMLName    xml.Name             `xml:"w:p"`
	Properties *ParagraphProperties `xml:"w:pPr,omitempty"`
	Content    []Inline
}

func (p *Paragraph) isBlock() {}

// ParagraphProperties keeps the schema order pStyle, numPr, jc.
type ParagraphProperties struct {
	Style     *Val                 `xml:"w:pStyle,omitempty"`
	Numbering *NumberingProperties `xml:"w:numPr,omitempty"`
	Alignment *Val                 `xml:"w:jc,omitempty"`
}

// NumberingProperties represents w:numPr.
type NumberingProperties struct {
	Level *Val `xml:"w:ilvl"`
	NumID *Val `xml:"w:numId"`
}

func (p *Paragraph) properties() *ParagraphProperties {
	if p.Properties == nil {
		p.Properties = &ParagraphProperties{}
	}
	return p.Properties
}

// SetStyle sets the paragraph style id. An empty id clears it.
func (p *Paragraph) SetStyle(style string) {
	if style == "" {
		if p.Properties != nil {
			p.Properties.Style = nil
		}
		return
	}
	p.properties().Style = &Val{Val: style}
}

// SetAlignment sets the w:jc value.
func (p *Paragraph) SetAlignment(jc string) {
	p.properties().Alignment = &Val{Val: jc}
}

// AddRun appends a run and returns it.
func (p *Paragraph) AddRun(r *Run) *Run {
	p.Content = append(p.Content, r)
	return r
}

// AddText appends a plain text run.
func (p *Paragraph) AddText(text string) *Run {
	return p.AddRun(NewRun(text))
}

// ListStyle implements numbering.Item.
func (p *Paragraph) ListStyle() string {
	if p == nil || p.Properties == nil || p.Properties.Style == nil {
		return ""
	}
	return p.Properties.Style.Val
}

// ListNumbering implements numbering.Item.
func (p *Paragraph) ListNumbering() (numbering.Ref, bool) {
	if p == nil || p.Properties == nil || p.Properties.Numbering == nil || p.Properties.Numbering.NumID == nil {
		return numbering.Ref{}, false
	}
	numID, err := strconv.Atoi(p.Properties.Numbering.NumID.Val)
	if err != nil {
		return numbering.Ref{}, false
	}
	ref := numbering.Ref{NumID: numID}
	if lvl := p.Properties.Numbering.Level; lvl != nil {
		ref.Level, _ = strconv.Atoi(lvl.Val)
	}
	return ref, true
}

// SetListNumbering implements numbering.Item.
func (p *Paragraph) SetListNumbering(ref numbering.Ref) {
	p.properties().Numbering = &NumberingProperties{
		Level: &Val{Val: strconv.Itoa(ref.Level)},
		NumID: &Val{Val: strconv.Itoa(ref.NumID)},
	}
}

// Run represents a w:r element.
type Run struct {
	XMLName    xml.Name       `xml:"w:r"`
	Properties *RunProperties `xml:"w:rPr,omitempty"`
	Content    []RunContent
}

func (r *Run) isInline() {}

// NewRun creates a run holding text. Newlines become line breaks.
func NewRun(text string) *Run {
	r := &Run{}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			r.Content = append(r.Content, &Break{})
		}
		r.Content = append(r.Content, NewText(line))
	}
	return r
}

// RunProperties keeps the schema order rStyle, rFonts, b, i, strike,
// highlight, u.
type RunProperties struct {
	Style     *Val   `xml:"w:rStyle,omitempty"`
	Fonts     *Fonts `xml:"w:rFonts,omitempty"`
	Bold      *Empty `xml:"w:b,omitempty"`
	Italic    *Empty `xml:"w:i,omitempty"`
	Strike    *Empty `xml:"w:strike,omitempty"`
	Highlight *Val   `xml:"w:highlight,omitempty"`
	Underline *Val   `xml:"w:u,omitempty"`
}

// Empty is a presence-only toggle element.
type Empty struct{}

// Fonts represents w:rFonts.
type Fonts struct {
	ASCII string `xml:"w:ascii,attr"`
	HAnsi string `xml:"w:hAnsi,attr"`
	CS    string `xml:"w:cs,attr"`
}

func (r *Run) properties() *RunProperties {
	if r.Properties == nil {
		r.Properties = &RunProperties{}
	}
	return r.Properties
}

func (r *Run) SetBold()      { r.properties().Bold = &Empty{} }
func (r *Run) SetItalic()    { r.properties().Italic = &Empty{} }
func (r *Run) SetStrike()    { r.properties().Strike = &Empty{} }
func (r *Run) SetUnderline() { r.properties().Underline = &Val{Val: "single"} }

// SetFont sets the ascii, hAnsi and complex script font.
func (r *Run) SetFont(name string) {
	r.properties().Fonts = &Fonts{ASCII: name, HAnsi: name, CS: name}
}

func (r *Run) SetHighlight(color string) {
	r.properties().Highlight = &Val{Val: color}
}

// SetStyle sets the character style id.
func (r *Run) SetStyle(style string) {
	if style != "" {
		r.properties().Style = &Val{Val: style}
	}
}

// Text represents w:t; whitespace is always preserved.
type Text struct {
	XMLName xml.Name `xml:"w:t"`
	Space   string   `xml:"xml:space,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

func (t *Text) isRunContent() {}

func NewText(value string) *Text {
	return &Text{Space: "preserve", Value: value}
}

// Break represents w:br.
type Break struct {
	XMLName xml.Name `xml:"w:br"`
}

func (b *Break) isRunContent() {}

// FieldChar represents w:fldChar.
type FieldChar struct {
	XMLName xml.Name `xml:"w:fldChar"`
	Type    string   `xml:"w:fldCharType,attr"`
}

func (f *FieldChar) isRunContent() {}

// InstrText represents a field instruction.
type InstrText struct {
	XMLName xml.Name `xml:"w:instrText"`
	Space   string   `xml:"xml:space,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

func (i *InstrText) isRunContent() {}

// Hyperlink represents a w:hyperlink pointing at an external relationship.
type Hyperlink struct {
	XMLName xml.Name `xml:"w:hyperlink"`
	ID      string   `xml:"r:id,attr"`
	History string   `xml:"w:history,attr,omitempty"`
	Runs    []*Run
}

func (h *Hyperlink) isInline() {}

// Marshal serializes blocks back to back.
func Marshal(blocks ...Block) (string, error) {
	var b strings.Builder
	for _, block := range blocks {
		out, err := xml.Marshal(block)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %T: %w", block, err)
		}
		b.Write(out)
	}
	return b.String(), nil
}

// MarshalInline serializes paragraph content back to back.
func MarshalInline(items ...Inline) (string, error) {
	var b strings.Builder
	for _, item := range items {
		out, err := xml.Marshal(item)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %T: %w", item, err)
		}
		b.Write(out)
	}
	return b.String(), nil
}
