package docxgen

import (
	"path"
	"strconv"

	"github.com/beevik/etree"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
)

// relationship attributes (r:embed on pictures, r:id on hyperlinks, r:link
// on linked pictures)
var relationshipAttrs = map[string]bool{"embed": true, "id": true, "link": true}

// subDocument returns the body content of another DOCX file as body XML.
// Pictures and hyperlinks are copied into the package being rendered and
// their references renumbered.
func (p *pass) subDocument(file string) (string, error) {
	sub, err := docx.Open(file)
	if err != nil {
		return "", rendering.Wrap(err, "Sub document could not be opened", "Sub document could not be opened: "+file)
	}
	body, err := sub.Body()
	if err != nil {
		return "", rendering.Wrap(err, "Sub document could not be opened", "Sub document could not be opened: "+file)
	}

	var blocks []*etree.Element
	for _, el := range body.ChildElements() {
		if el.FullTag() == "w:sectPr" {
			continue
		}
		blocks = append(blocks, el.Copy())
	}

	imported := make(map[string]string)
	for _, block := range blocks {
		for _, el := range append([]*etree.Element{block}, block.FindElements(".//*")...) {
			for i, attr := range el.Attr {
				if attr.Space != "r" || !relationshipAttrs[attr.Key] {
					continue
				}
				id, err := p.importRelationship(sub, attr.Value, imported)
				if err != nil {
					return "", err
				}
				el.Attr[i].Value = id
			}
		}
		for _, docPr := range docx.Descendants(block, "wp:docPr") {
			docPr.CreateAttr("id", strconv.Itoa(p.pkg.NextDrawingID()))
		}
	}

	if err := p.adoptNamespaces(sub); err != nil {
		return "", err
	}
	return docx.ElementsXML(blocks), nil
}

// importRelationship recreates relationship id of sub in the package being
// rendered and returns the new id.
func (p *pass) importRelationship(sub *docx.Package, id string, imported map[string]string) (string, error) {
	if newID, ok := imported[id]; ok {
		return newID, nil
	}
	rel, ok := sub.Relationship(id)
	if !ok {
		return "", rendering.New("Sub document is invalid", "Sub document references a missing relationship: "+id)
	}

	var newID string
	var err error
	switch {
	case rel.Type == docx.HyperlinkRelationshipType:
		newID, err = p.pkg.AddHyperlink(rel.Target)
	case rel.Type == docx.ImageRelationshipType && rel.TargetMode != "External":
		data, found := sub.Part(docx.RelationshipTargetPart(rel.Target))
		if !found {
			return "", rendering.New("Sub document is invalid", "Sub document image not found: "+rel.Target)
		}
		newID, err = p.pkg.AddMedia(path.Ext(rel.Target), data)
	default:
		return "", rendering.New("Sub document content is not supported",
			"Sub document relationship type not supported: "+rel.Type)
	}
	if err != nil {
		return "", rendering.Wrap(err, "Sub document could not be added")
	}
	imported[id] = newID
	return newID, nil
}

// adoptNamespaces declares on the document root the namespace prefixes of
// sub that it lacks.
func (p *pass) adoptNamespaces(sub *docx.Package) error {
	subDoc, err := sub.Document()
	if err != nil {
		return err
	}
	doc, err := p.pkg.Document()
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, attr := range subDoc.Root().Attr {
		if attr.Space != "xmlns" {
			continue
		}
		if root.SelectAttr("xmlns:"+attr.Key) == nil {
			root.CreateAttr("xmlns:"+attr.Key, attr.Value)
		}
	}
	return nil
}
