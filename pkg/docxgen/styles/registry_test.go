package styles

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
)

func para(text string, props string) string {
	return `<w:p>` + props + `<w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func runPara(text, rPr string) string {
	return `<w:p><w:r>` + rPr + `<w:t>` + text + `</w:t></w:r></w:p>`
}

func parseBody(t *testing.T, inner string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	src := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		inner + `</w:body></w:document>`
	if err := doc.ReadFromString(src); err != nil {
		t.Fatal(err)
	}
	return doc.Root().SelectElement("w:body")
}

func TestLoadCapturesRoles(t *testing.T) {
	body := parseBody(t, strings.Join([]string{
		para("Report title", ""),
		para("## Begin Style default ##", ""),
		para("## header1 ##", `<w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`),
		para("## paragraph ##", ""),
		runPara("## strong ##", `<w:rPr><w:b/></w:rPr>`),
		runPara("## italic ##", ""),
		para("## unknown ##", `<w:pPr><w:pStyle w:val="Ignored"/></w:pPr>`),
		`<w:tbl><w:tblPr><w:tblStyle w:val="Grid"/></w:tblPr><w:tr><w:tc><w:p/></w:tc></w:tr></w:tbl>`,
		para("## end style ##", ""),
		para("## begin style compact ##", ""),
		para("##END STYLE##", ""),
	}, ""))

	reg, err := Load(body)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"compact", "default"}, reg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	b, err := reg.Get("default")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		role Role
		want string
	}{
		{RoleHeader1, `<w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`},
		{RoleParagraph, `<w:pPr></w:pPr>`},
		{RoleStrong, `<w:rPr><w:b/></w:rPr>`},
		{RoleItalic, `<w:rPr></w:rPr>`},
		{RoleTable, `<w:tblPr><w:tblStyle w:val="Grid"/></w:tblPr>`},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got, ok := b.Get(tt.role)
			if !ok {
				t.Fatalf("role %s not defined", tt.role)
			}
			if got != tt.want {
				t.Errorf("Get(%s) = %s, want %s", tt.role, got, tt.want)
			}
		})
	}
	if b.Warnings().Len() != 0 {
		t.Errorf("unexpected warnings: %v", b.Warnings().List())
	}
}

func TestUndefinedRoleWarnsOnce(t *testing.T) {
	b := NewBundle("default", nil)
	for i := 0; i < 3; i++ {
		if got, ok := b.Get(RoleQuote); ok || got != "" {
			t.Fatalf("Get(quote) = %q, %v; want absent", got, ok)
		}
	}
	want := []string{"Try to use quote on style default but is not defined"}
	if diff := cmp.Diff(want, b.Warnings().List()); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestNewBundleDropsInvalidRoles(t *testing.T) {
	b := NewBundle("x", map[Role]string{"shiny": "<w:pPr/>", RoleCode: "<w:pPr/>"})
	if _, ok := b.Get("shiny"); ok {
		t.Errorf("invalid role was kept")
	}
	if _, ok := b.Get(RoleCode); !ok {
		t.Errorf("valid role was dropped")
	}
	if got := b.Warnings().List()[0]; got != "Invalid style descriptor shiny on style name x" {
		t.Errorf("first warning = %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unterminated",
			body: para("## begin style default ##", "") + para("## header1 ##", ""),
			want: "Unexpected end of template style definition default. Never closed",
		},
		{
			name: "duplicate",
			body: para("## begin style a ##", "") + para("## end style ##", "") +
				para("## begin style a ##", "") + para("## end style ##", ""),
			want: "Style a already defined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(parseBody(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !rendering.Is(err) {
				t.Errorf("error %T is not a rendering error", err)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestGetUnknownBundle(t *testing.T) {
	reg, err := Load(parseBody(t, para("no styles here", "")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("default"); err == nil || err.Error() != "Style default not defined" {
		t.Errorf("Get() error = %v", err)
	}
}

func TestHeaderRole(t *testing.T) {
	got := []Role{HeaderRole(0), HeaderRole(1), HeaderRole(3), HeaderRole(5), HeaderRole(6)}
	want := []Role{RoleHeader1, RoleHeader1, RoleHeader3, RoleHeader5, RoleHeader5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("HeaderRole mismatch (-want +got):\n%s", diff)
	}
}
