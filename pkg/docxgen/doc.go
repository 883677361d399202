// Package docxgen generates incident reports from DOCX templates.
//
// A template is an ordinary Word document holding markers in double curly
// braces and, optionally, style regions describing how Markdown and rich
// text are formatted.
//
// # Quick Start
//
//	gen, err := docxgen.New(docxgen.ConfigFromEnvironment(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = gen.Generate(ctx, docxgen.Request{
//	    BasePath:     "/data/case-42",
//	    TemplatePath: "templates/report.docx",
//	    OutputPath:   "reports/report.docx",
//	    Data:         data,
//	    StyleMapping: map[string]string{"paragraph": "Normal", "caption": "Caption"},
//	})
//
// # Template Syntax
//
//	{{case.title}}                      - Variable
//	{{if case.open}}...{{end}}          - Conditional, also elsif, else and unless
//	{{for ioc in iocs}}...{{end}}       - Loop, also {{for i, ioc in iocs}}
//
// A marker alone in its paragraph, or table row, repeats or hides the
// paragraphs (or rows) up to the matching {{end}}.
//
// # Report Functions
//
//	{{markdown(summary)}}                        - Markdown, "default" style region
//	{{markdown(summary, 'compact')}}             - Markdown with a named style region
//	{{html(notes)}}                              - HTML, converted to Markdown
//	{{addRichtext(notes)}}                       - SlateJS rich-text JSON
//	{{addPicture('evidence/a.png', 'LEFT')}}     - Picture relative to the base path, or a URL
//	{{addPictureFromUuid(id)}}                   - The single file of <base>/<id>/
//	{{addSubDocument('annex.docx')}}             - Body of another document
//	{{addSubDocumentFromUuid(id)}}
//	{{addHyperlink('IRIS', url, 'Hyperlink')}}   - Hyperlink with an optional character style
//	{{timestampToDate(ms, '%d/%m/%Y %H:%M')}}    - Millisecond timestamp, UTC
//
// Markdown, rich text, pictures and sub-documents replace the paragraph
// holding their marker.
//
// # Style Regions
//
//	## begin style default ##
//	## header1 ##         <- paragraph formatting of level 1 headings
//	## strong ##          <- character formatting of bold text
//	## end style ##
//
// # Re-rendering
//
// Data may itself contain markers. After each pass the output is scanned
// and, while markers remain, rendered again, at most Config.MaxRenderDepth
// more times.
package docxgen
