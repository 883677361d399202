package wml

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Drawing is an inline picture referencing an image relationship. Width and
// Height are in EMU.
type Drawing struct {
	ID     int
	Name   string
	RelID  string
	Width  int64
	Height int64
}

func (d *Drawing) isRunContent() {}

const inlinePicture = `<wp:inline distT="0" distB="0" distL="0" distR="0">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/>` +
	`<wp:docPr id="%[3]d" name="Picture %[3]d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
	`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:nvPicPr><pic:cNvPr id="0" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline>`

// MarshalXML writes the w:drawing element with its inline picture.
func (d *Drawing) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	var name, rel bytes.Buffer
	if err := xml.EscapeText(&name, []byte(d.Name)); err != nil {
		return err
	}
	if err := xml.EscapeText(&rel, []byte(d.RelID)); err != nil {
		return err
	}
	inner := struct {
		XML string `xml:",innerxml"`
	}{
		XML: fmt.Sprintf(inlinePicture, d.Width, d.Height, d.ID, name.String(), rel.String()),
	}
	return e.EncodeElement(inner, xml.StartElement{Name: xml.Name{Local: "w:drawing"}})
}

// ScaleToWidth shrinks the drawing to maxWidth, keeping the aspect ratio.
// It reports whether the size changed.
func (d *Drawing) ScaleToWidth(maxWidth int64) bool {
	if maxWidth <= 0 || d.Width <= maxWidth {
		return false
	}
	ratio := float64(d.Height) / float64(d.Width)
	d.Width = maxWidth
	d.Height = int64(ratio * float64(maxWidth))
	return true
}
