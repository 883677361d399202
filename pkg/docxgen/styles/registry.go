// Package styles extracts named style bundles from sentinel regions of a
// template body:
//
//	## begin style default ##
//	## header1 ##        (paragraph formatting captured)
//	## strong ##         (first run formatting captured)
//	<table>              (table properties captured)
//	## end style ##
package styles

import (
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
)

// DefaultName is the bundle used when a caller does not name one.
const DefaultName = "default"

var (
	beginStyleRegex = regexp.MustCompile(`(?i)^##\s*begin\s*style\s*(\w+)\s*##`)
	endStyleRegex   = regexp.MustCompile(`(?i)^##\s*end\s*style\s*##`)
	tagStyleRegex   = regexp.MustCompile(`(?i)^##\s*(\w+)\s*##`)
)

// Registry maps bundle names to bundles. It is read-only once loaded.
type Registry struct {
	bundles map[string]*Bundle
}

// NewRegistry builds a registry from bundles, rejecting duplicate names.
func NewRegistry(bundles ...*Bundle) (*Registry, error) {
	r := &Registry{bundles: make(map[string]*Bundle)}
	for _, b := range bundles {
		if err := r.add(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(b *Bundle) error {
	if _, ok := r.bundles[b.name]; ok {
		return rendering.Newf("Style %s already defined", b.name)
	}
	r.bundles[b.name] = b
	return nil
}

// Load scans the block-level children of body in document order and
// collects every style region.
func Load(body *etree.Element) (*Registry, error) {
	r := &Registry{bundles: make(map[string]*Bundle)}
	if body == nil {
		return r, nil
	}

	var (
		name      string
		open      bool
		fragments map[Role]string
	)
	for _, el := range body.ChildElements() {
		switch el.FullTag() {
		case "w:tbl":
			if !open {
				continue
			}
			fragments[RoleTable] = childXML(el, "w:tblPr")
		case "w:p":
			text := strings.TrimSpace(docx.ParagraphText(el))
			if !open {
				if m := beginStyleRegex.FindStringSubmatch(text); m != nil {
					name, open = m[1], true
					fragments = make(map[Role]string)
				}
				continue
			}
			if endStyleRegex.MatchString(text) {
				if err := r.add(NewBundle(name, fragments)); err != nil {
					return nil, err
				}
				name, open, fragments = "", false, nil
				continue
			}
			m := tagStyleRegex.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			role := Role(strings.ToLower(m[1]))
			switch {
			case paragraphRoles[role]:
				fragments[role] = childXML(el, "w:pPr")
			case runRoles[role]:
				fragments[role] = childXML(el.SelectElement("w:r"), "w:rPr")
			}
		}
	}

	if open {
		return nil, rendering.Newf("Unexpected end of template style definition %s. Never closed", name)
	}
	return r, nil
}

// childXML serializes the named property child of el, or an empty property
// element when el or the child is missing.
func childXML(el *etree.Element, tag string) string {
	if el != nil {
		if child := el.SelectElement(tag); child != nil {
			return docx.ElementXML(child)
		}
	}
	return "<" + tag + "></" + tag + ">"
}

// Get returns the named bundle.
func (r *Registry) Get(name string) (*Bundle, error) {
	if r != nil {
		if b, ok := r.bundles[name]; ok {
			return b, nil
		}
	}
	return nil, rendering.Newf("Style %s not defined", name)
}

// Names lists the bundle names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.bundles))
	for name := range r.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.bundles)
}
