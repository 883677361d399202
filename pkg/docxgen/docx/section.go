package docx

import (
	"strconv"

	"github.com/beevik/etree"
)

// EMUPerTwip converts twentieths of a point into English Metric Units.
const EMUPerTwip = 635

// DefaultContentWidth is the content width of a Letter page with one
// inch margins, in twips.
const DefaultContentWidth = 9360

// PageContentWidth returns the width available between the left and right
// margins of the document's final section, in EMU.
func (p *Package) PageContentWidth() int64 {
	body, err := p.Body()
	if err != nil {
		return DefaultContentWidth * EMUPerTwip
	}
	return sectionContentWidth(body) * EMUPerTwip
}

func sectionContentWidth(body *etree.Element) int64 {
	// The final section is the body's own w:sectPr; the others sit in the
	// w:pPr of the last paragraph of each earlier section.
	sectPr := body.SelectElement("w:sectPr")
	if sectPr == nil {
		if all := Descendants(body, "w:sectPr"); len(all) > 0 {
			sectPr = all[len(all)-1]
		}
	}
	if sectPr == nil {
		return DefaultContentWidth
	}

	pgSz := sectPr.SelectElement("w:pgSz")
	pgMar := sectPr.SelectElement("w:pgMar")
	if pgSz == nil {
		return DefaultContentWidth
	}
	width := twips(pgSz, "w:w")
	if pgMar != nil {
		width -= twips(pgMar, "w:left") + twips(pgMar, "w:right")
	}
	if width <= 0 {
		return DefaultContentWidth
	}
	return width
}

func twips(el *etree.Element, attr string) int64 {
	v, err := strconv.ParseInt(el.SelectAttrValue(attr, "0"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
