package docx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const contentTypesNamespace = "http://schemas.openxmlformats.org/package/2006/content-types"

func (p *Package) contentTypesTree() (*etree.Document, error) {
	if p.contentTypes != nil {
		return p.contentTypes, nil
	}
	tree := etree.NewDocument()
	if data, ok := p.parts[ContentTypesPart]; ok {
		if err := tree.ReadFromBytes(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ContentTypesPart, err)
		}
	}
	if tree.Root() == nil {
		tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := tree.CreateElement("Types")
		root.CreateAttr("xmlns", contentTypesNamespace)
	}
	p.contentTypes = tree
	return tree, nil
}

func (p *Package) ensureDefaultContentType(ext, contentType string) error {
	tree, err := p.contentTypesTree()
	if err != nil {
		return err
	}
	root := tree.Root()
	for _, def := range root.SelectElements("Default") {
		if strings.EqualFold(def.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}
	def := etree.NewElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", contentType)
	root.InsertChildAt(0, def)
	return nil
}

func (p *Package) ensureOverrideContentType(partName, contentType string) error {
	tree, err := p.contentTypesTree()
	if err != nil {
		return err
	}
	root := tree.Root()
	for _, override := range root.SelectElements("Override") {
		if override.SelectAttrValue("PartName", "") == partName {
			return nil
		}
	}
	override := root.CreateElement("Override")
	override.CreateAttr("PartName", partName)
	override.CreateAttr("ContentType", contentType)
	return nil
}
