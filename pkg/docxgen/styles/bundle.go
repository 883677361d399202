package styles

import (
	"sync"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
)

// Role names one formatting slot of a bundle.
type Role string

const (
	RoleHeader1      Role = "header1"
	RoleHeader2      Role = "header2"
	RoleHeader3      Role = "header3"
	RoleHeader4      Role = "header4"
	RoleHeader5      Role = "header5"
	RoleUnordered    Role = "ul"
	RoleOrdered      Role = "ol"
	RoleParagraph    Role = "paragraph"
	RoleInlineCode   Role = "inline_code"
	RoleCode         Role = "code"
	RoleQuote        Role = "quote"
	RoleHyperlink    Role = "hyperlink"
	RoleImageCaption Role = "image_caption"
	RoleStrong       Role = "strong"
	RoleItalic       Role = "italic"
	RoleStrike       Role = "strike"
	RoleTable        Role = "table"
)

// Paragraph roles capture w:pPr, run roles capture the first run's w:rPr and
// the table role captures w:tblPr.
var (
	paragraphRoles = map[Role]bool{
		RoleUnordered: true, RoleOrdered: true, RoleParagraph: true,
		RoleCode: true, RoleQuote: true, RoleImageCaption: true,
		RoleHeader1: true, RoleHeader2: true, RoleHeader3: true,
		RoleHeader4: true, RoleHeader5: true,
	}
	runRoles = map[Role]bool{
		RoleHyperlink: true, RoleStrong: true, RoleItalic: true,
		RoleStrike: true, RoleInlineCode: true,
	}
)

// Roles lists every role a bundle may define.
func Roles() []Role {
	return []Role{
		RoleHeader1, RoleHeader2, RoleHeader3, RoleHeader4, RoleHeader5,
		RoleUnordered, RoleOrdered, RoleParagraph, RoleInlineCode, RoleCode,
		RoleQuote, RoleHyperlink, RoleImageCaption, RoleStrong, RoleItalic,
		RoleStrike, RoleTable,
	}
}

// HeaderRole returns the heading role for level, clamped to 1..5.
func HeaderRole(level int) Role {
	switch {
	case level <= 1:
		return RoleHeader1
	case level >= 5:
		return RoleHeader5
	}
	return Role("header" + string(rune('0'+level)))
}

func validRole(role Role) bool {
	return paragraphRoles[role] || runRoles[role] || role == RoleTable
}

// Bundle is a named set of formatting fragments. Fragments never change
// after construction; lookups of undefined roles are recorded as warnings.
type Bundle struct {
	name      string
	fragments map[Role]string

	mu       sync.Mutex
	warnings rendering.Warnings
}

// NewBundle creates a bundle. Unknown roles are dropped with a warning.
func NewBundle(name string, fragments map[Role]string) *Bundle {
	b := &Bundle{name: name, fragments: make(map[Role]string, len(fragments))}
	for role, xml := range fragments {
		if !validRole(role) {
			b.warnings.Add("Invalid style descriptor %s on style name %s", role, name)
			continue
		}
		b.fragments[role] = xml
	}
	return b
}

func (b *Bundle) Name() string {
	return b.name
}

// Get returns the fragment for role. An undefined role yields "" and false
// and records a warning.
func (b *Bundle) Get(role Role) (string, bool) {
	if xml, ok := b.fragments[role]; ok {
		return xml, true
	}
	b.mu.Lock()
	b.warnings.Add("Try to use %s on style %s but is not defined", role, b.name)
	b.mu.Unlock()
	return "", false
}

// Fragment is Get without the presence flag.
func (b *Bundle) Fragment(role Role) string {
	xml, _ := b.Get(role)
	return xml
}

// Warnings returns a snapshot of the warnings recorded so far.
func (b *Bundle) Warnings() *rendering.Warnings {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := &rendering.Warnings{}
	out.Merge(&b.warnings)
	return out
}
