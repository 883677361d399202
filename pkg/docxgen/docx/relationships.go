package docx

import (
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"
)

const (
	relationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"

	ImageRelationshipType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	HyperlinkRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	NumberingRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
)

// Relationship represents a relationship of the main document part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Relationships represents word/_rels/document.xml.rels.
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

func (r *Relationships) marshal() ([]byte, error) {
	r.Namespace = relationshipsNamespace
	out, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relationships: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// nextID returns the first "rIdN" above every existing numeric id.
func (r *Relationships) nextID() string {
	maxID := 0
	for _, rel := range r.Relationship {
		if strings.HasPrefix(rel.ID, "rId") {
			if id, err := strconv.Atoi(rel.ID[3:]); err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

func (r *Relationships) add(relType, target, mode string) string {
	id := r.nextID()
	r.Relationship = append(r.Relationship, Relationship{
		ID:         id,
		Type:       relType,
		Target:     target,
		TargetMode: mode,
	})
	return id
}

// relationships loads the main document relationships on first use.
func (p *Package) relationships() (*Relationships, error) {
	if p.rels != nil {
		return p.rels, nil
	}
	rels := &Relationships{Namespace: relationshipsNamespace}
	if data, ok := p.parts[RelationshipsPart]; ok {
		if err := xml.Unmarshal(data, rels); err != nil {
			return nil, fmt.Errorf("failed to parse relationships: %w", err)
		}
	}
	p.rels = rels
	return rels, nil
}

// Relationship looks up a relationship of the main document by id.
func (p *Package) Relationship(id string) (Relationship, bool) {
	rels, err := p.relationships()
	if err != nil {
		return Relationship{}, false
	}
	for _, rel := range rels.Relationship {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// RelationshipTargetPart resolves an internal relationship target to a
// package part name.
func RelationshipTargetPart(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join("word", target))
}

// AddHyperlink registers an external hyperlink target and returns its id.
// An existing relationship to the same target is reused.
func (p *Package) AddHyperlink(url string) (string, error) {
	rels, err := p.relationships()
	if err != nil {
		return "", err
	}
	for _, rel := range rels.Relationship {
		if rel.Type == HyperlinkRelationshipType && rel.Target == url && rel.TargetMode == "External" {
			return rel.ID, nil
		}
	}
	return rels.add(HyperlinkRelationshipType, url, "External"), nil
}

// AddMedia stores an image part under word/media and returns the id of the
// relationship pointing at it.
func (p *Package) AddMedia(ext string, data []byte) (string, error) {
	rels, err := p.relationships()
	if err != nil {
		return "", err
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		ext = "jpg"
	}

	index := 1
	for p.HasPart(fmt.Sprintf("word/media/image%d.%s", index, ext)) {
		index++
	}
	target := fmt.Sprintf("media/image%d.%s", index, ext)
	p.setPart("word/"+target, data)

	if err := p.ensureDefaultContentType(ext, mediaContentType(ext)); err != nil {
		return "", err
	}
	return rels.add(ImageRelationshipType, target, ""), nil
}

func mediaContentType(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
