// Package docx reads, edits and writes the DOCX container: the zip parts,
// the main document tree, relationships, numbering, media and content types.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
)

const (
	DocumentPart      = "word/document.xml"
	NumberingPart     = "word/numbering.xml"
	RelationshipsPart = "word/_rels/document.xml.rels"
	ContentTypesPart  = "[Content_Types].xml"
)

var headerFooterPartRegex = regexp.MustCompile(`^word/(header|footer)\d+\.xml$`)

// Package is an opened DOCX file. XML parts that are accessed through
// XMLPart are kept as trees and re-serialized on save; every other part is
// copied byte for byte.
type Package struct {
	order []string
	parts map[string][]byte
	trees map[string]*etree.Document

	rels         *Relationships
	contentTypes *etree.Document
	nextDrawing  int
}

// Open reads a DOCX file from disk.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Read(data)
}

// Read parses a DOCX package held in memory.
func Read(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	pkg := &Package{
		parts: make(map[string][]byte),
		trees: make(map[string]*etree.Document),
	}
	for _, file := range zr.File {
		content, err := readZipFile(file)
		if err != nil {
			return nil, err
		}
		pkg.order = append(pkg.order, file.Name)
		pkg.parts[file.Name] = content
	}

	if _, ok := pkg.parts[DocumentPart]; !ok {
		return nil, fmt.Errorf("not a valid DOCX file: missing %s", DocumentPart)
	}
	return pkg, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	return content, nil
}

// Part returns the raw content of a part. Parts held as trees are returned
// in their current serialized form.
func (p *Package) Part(name string) ([]byte, bool) {
	if tree, ok := p.trees[name]; ok {
		out, err := tree.WriteToBytes()
		if err != nil {
			return nil, false
		}
		return out, true
	}
	data, ok := p.parts[name]
	return data, ok
}

// HasPart reports whether the package contains the named part.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// XMLPart returns the parsed tree of an XML part. The tree is cached and
// written back when the package is saved.
func (p *Package) XMLPart(name string) (*etree.Document, error) {
	if tree, ok := p.trees[name]; ok {
		return tree, nil
	}
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	p.trees[name] = tree
	return tree, nil
}

// Document returns the main document tree.
func (p *Package) Document() (*etree.Document, error) {
	return p.XMLPart(DocumentPart)
}

// Body returns the w:body element of the main document.
func (p *Package) Body() (*etree.Element, error) {
	doc, err := p.Document()
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%s has no root element", DocumentPart)
	}
	body := root.SelectElement("w:body")
	if body == nil {
		return nil, fmt.Errorf("%s has no w:body element", DocumentPart)
	}
	return body, nil
}

// HeaderFooterParts lists header and footer part names in package order.
func (p *Package) HeaderFooterParts() []string {
	var names []string
	for _, name := range p.order {
		if headerFooterPartRegex.MatchString(name) {
			names = append(names, name)
		}
	}
	return names
}

// setPart stores a new or replaced raw part.
func (p *Package) setPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
	delete(p.trees, name)
}

// NextDrawingID returns a drawing object id unused in the main document.
func (p *Package) NextDrawingID() int {
	if p.nextDrawing == 0 {
		p.nextDrawing = 1
		if doc, err := p.Document(); err == nil {
			for _, docPr := range doc.FindElements("//wp:docPr") {
				if id, err := strconv.Atoi(docPr.SelectAttrValue("id", "")); err == nil && id >= p.nextDrawing {
					p.nextDrawing = id + 1
				}
			}
		}
	}
	id := p.nextDrawing
	p.nextDrawing++
	return id
}

// Bytes serializes the package.
func (p *Package) Bytes() ([]byte, error) {
	if err := p.flush(); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, name := range p.order {
		fw, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the package to path, replacing any existing file.
func (p *Package) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (p *Package) flush() error {
	for name, tree := range p.trees {
		out, err := tree.WriteToBytes()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", name, err)
		}
		p.parts[name] = out
	}
	if p.rels != nil {
		out, err := p.rels.marshal()
		if err != nil {
			return err
		}
		p.setPart(RelationshipsPart, out)
	}
	if p.contentTypes != nil {
		out, err := p.contentTypes.WriteToBytes()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", ContentTypesPart, err)
		}
		p.setPart(ContentTypesPart, out)
	}
	return nil
}
