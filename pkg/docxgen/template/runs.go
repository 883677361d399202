package template

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	tagParagraph  = "w:p"
	tagParaProps  = "w:pPr"
	tagRun        = "w:r"
	tagRunProps   = "w:rPr"
	tagText       = "w:t"
	tagBreak      = "w:br"
	tagTab        = "w:tab"
	tagHyperlink  = "w:hyperlink"
	tagProofErr   = "w:proofErr"
	tagTable      = "w:tbl"
	tagRow        = "w:tr"
	tagCell       = "w:tc"
	tagSdtContent = "w:sdtContent"
)

// textRun reports whether a run holds nothing but text, tabs and line
// breaks, so its content can be rewritten as a string.
func textRun(r *etree.Element) bool {
	for _, c := range r.ChildElements() {
		switch c.FullTag() {
		case tagRunProps, tagText, tagTab:
		case tagBreak:
			if t := c.SelectAttrValue("w:type", ""); t != "" && t != "textWrapping" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// runText returns the run content with breaks as "\n" and tabs as "\t".
func runText(r *etree.Element) string {
	var b strings.Builder
	for _, c := range r.ChildElements() {
		switch c.FullTag() {
		case tagText:
			b.WriteString(c.Text())
		case tagBreak:
			b.WriteByte('\n')
		case tagTab:
			b.WriteByte('\t')
		}
	}
	return b.String()
}

// setRunText replaces the content of r, keeping its run properties.
func setRunText(r *etree.Element, text string) {
	for _, c := range r.ChildElements() {
		if c.FullTag() != tagRunProps {
			r.RemoveChild(c)
		}
	}
	appendText(r, text)
}

// appendText writes text into r, turning "\n" into line breaks and "\t"
// into tabs.
func appendText(r *etree.Element, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			r.CreateElement(tagBreak)
		}
		for j, part := range strings.Split(line, "\t") {
			if j > 0 {
				r.CreateElement(tagTab)
			}
			if part == "" {
				continue
			}
			t := r.CreateElement(tagText)
			t.CreateAttr("xml:space", "preserve")
			t.SetText(part)
		}
	}
}

// mergeRuns joins runs that Word split in the middle of a marker or of an
// inline control structure. The merged run keeps the formatting of the
// first one. Runs holding pictures or fields end a merge.
func mergeRuns(container *etree.Element) {
	children := container.ChildElements()
	for i := 0; i < len(children); i++ {
		r := children[i]
		if r.FullTag() == tagHyperlink {
			mergeRuns(r)
			continue
		}
		if r.FullTag() != tagRun || !textRun(r) {
			continue
		}
		text := runText(r)
		if !strings.Contains(text, "{{") || balanced(text) {
			continue
		}

		var absorbed []*etree.Element
	scan:
		for j := i + 1; j < len(children) && !balanced(text); j++ {
			next := children[j]
			switch next.FullTag() {
			case tagProofErr:
				absorbed = append(absorbed, next)
			case tagRun:
				if !textRun(next) {
					break scan
				}
				text += runText(next)
				absorbed = append(absorbed, next)
			default:
				break scan
			}
		}
		if len(absorbed) == 0 {
			continue
		}
		setRunText(r, text)
		for _, el := range absorbed {
			container.RemoveChild(el)
		}
		children = container.ChildElements()
	}
}

// newRun starts an empty run with a copy of rPr.
func newRun(rPr *etree.Element) *etree.Element {
	r := etree.NewElement(tagRun)
	if rPr != nil {
		r.AddChild(rPr.Copy())
	}
	return r
}

// hasRunContent reports whether r holds anything besides its properties.
func hasRunContent(r *etree.Element) bool {
	for _, c := range r.ChildElements() {
		if c.FullTag() != tagRunProps {
			return true
		}
	}
	return false
}
