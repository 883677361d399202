package docx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const numberingContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"

// defaultNumbering seeds templates without a numbering part with one bullet
// and one decimal single-level definition.
const defaultNumbering = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="singleLevel"/>` +
	`<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="` + "•" + `"/><w:lvlJc w:val="left"/>` +
	`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="1"><w:multiLevelType w:val="singleLevel"/>` +
	`<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="decimal"/><w:lvlText w:val="%1."/><w:lvlJc w:val="left"/>` +
	`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>` +
	`</w:numbering>`

// NumberingPartName returns the numbering part referenced by the main
// document, or the conventional name when none is referenced.
func (p *Package) NumberingPartName() string {
	rels, err := p.relationships()
	if err == nil {
		for _, rel := range rels.Relationship {
			if rel.Type == NumberingRelationshipType {
				return RelationshipTargetPart(rel.Target)
			}
		}
	}
	return NumberingPart
}

// Numbering returns the w:numbering root, creating the part together with
// its relationship and content type when the template has none.
func (p *Package) Numbering() (*etree.Element, error) {
	name := p.NumberingPartName()
	if !p.HasPart(name) {
		p.setPart(name, []byte(defaultNumbering))
		rels, err := p.relationships()
		if err != nil {
			return nil, err
		}
		rels.add(NumberingRelationshipType, strings.TrimPrefix(name, "word/"), "")
		if err := p.ensureOverrideContentType("/"+name, numberingContentType); err != nil {
			return nil, err
		}
	}

	tree, err := p.XMLPart(name)
	if err != nil {
		return nil, err
	}
	root := tree.Root()
	if root == nil || root.Tag != "numbering" {
		return nil, fmt.Errorf("%s has no w:numbering root", name)
	}
	return root, nil
}
