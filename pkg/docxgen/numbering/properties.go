package numbering

import (
	"strconv"

	"github.com/beevik/etree"
)

// Elements that precede w:numPr inside w:pPr.
var beforeNumPr = map[string]bool{
	"pStyle":          true,
	"keepNext":        true,
	"keepLines":       true,
	"pageBreakBefore": true,
	"framePr":         true,
	"widowControl":    true,
}

// Properties adapts a parsed w:pPr element to Item.
type Properties struct {
	PPr *etree.Element
}

func (p Properties) ListStyle() string {
	if pStyle := p.PPr.SelectElement("w:pStyle"); pStyle != nil {
		return pStyle.SelectAttrValue("w:val", "")
	}
	return ""
}

func (p Properties) ListNumbering() (Ref, bool) {
	numPr := p.PPr.SelectElement("w:numPr")
	if numPr == nil {
		return Ref{}, false
	}
	numID := numPr.SelectElement("w:numId")
	if numID == nil {
		return Ref{}, false
	}
	id, err := strconv.Atoi(numID.SelectAttrValue("w:val", ""))
	if err != nil {
		return Ref{}, false
	}
	ref := Ref{NumID: id}
	if ilvl := numPr.SelectElement("w:ilvl"); ilvl != nil {
		ref.Level, _ = strconv.Atoi(ilvl.SelectAttrValue("w:val", ""))
	}
	return ref, true
}

func (p Properties) SetListNumbering(ref Ref) {
	numPr := p.numPr()
	setVal(numPr, "w:ilvl", 0, ref.Level)
	setVal(numPr, "w:numId", 1, ref.NumID)
}

// SetLevel rewrites the indentation level of existing numbering. It reports
// false when the properties carry no w:numPr.
func (p Properties) SetLevel(level int) bool {
	numPr := p.PPr.SelectElement("w:numPr")
	if numPr == nil {
		return false
	}
	setVal(numPr, "w:ilvl", 0, level)
	return true
}

func (p Properties) numPr() *etree.Element {
	if numPr := p.PPr.SelectElement("w:numPr"); numPr != nil {
		return numPr
	}
	numPr := etree.NewElement("w:numPr")
	for _, child := range p.PPr.ChildElements() {
		if !beforeNumPr[child.Tag] {
			p.PPr.InsertChildAt(child.Index(), numPr)
			return numPr
		}
	}
	p.PPr.AddChild(numPr)
	return numPr
}

// setVal sets the w:val of the named child, creating it at position pos
// among the element children when missing.
func setVal(parent *etree.Element, tag string, pos, value int) {
	el := parent.SelectElement(tag)
	if el == nil {
		el = etree.NewElement(tag)
		children := parent.ChildElements()
		if pos < len(children) {
			parent.InsertChildAt(children[pos].Index(), el)
		} else {
			parent.AddChild(el)
		}
	}
	el.CreateAttr("w:val", strconv.Itoa(value))
}
