package docxgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/assets"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/styles"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/template"
)

// RenderingError is the only error returned by Generate.
type RenderingError = rendering.Error

// residualMarkerRegex matches a variable or control marker left in a
// paragraph after a pass.
var residualMarkerRegex = regexp.MustCompile(`\{\{.+\}\}|\{%.+%\}`)

// Request describes one document to generate. TemplatePath and OutputPath
// are relative to BasePath.
type Request struct {
	BasePath     string
	TemplatePath string
	OutputPath   string
	Data         map[string]interface{}
	// StyleMapping maps rich-text node types to paragraph style ids.
	StyleMapping map[string]string
	// ImageDirectory overrides Config.ImageDirectory for this request.
	ImageDirectory string
}

// Generator renders report templates. It holds no per-document state and
// can be reused.
type Generator struct {
	config *Config
	log    *logging.Logger
}

// New creates a generator. A nil config means DefaultConfig; a nil logger
// writes to stderr at the configured level.
func New(config *Config, logger *logging.Logger) (*Generator, error) {
	config = NewConfigWithDefaults(config)
	if err := config.Validate(); err != nil {
		return nil, rendering.Wrap(err, "Invalid generator configuration", err.Error())
	}
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.ParseLevel(config.LogLevel))
	}
	return &Generator{config: config, log: logger}, nil
}

// Config returns a copy of the generator configuration.
func (g *Generator) Config() Config {
	return *g.config
}

// sanitizePath trims the leading and trailing dots, slashes, commas and
// spaces a caller may have left around a relative path.
func sanitizePath(p string) string {
	p = strings.Trim(p, "./")
	p = strings.Trim(p, ",")
	p = strings.Trim(p, " ")
	return filepath.Clean(p)
}

func (g *Generator) templatePath(base, p string) (string, error) {
	if err := assets.CheckTraversal(p); err != nil {
		return "", err
	}
	full := filepath.Join(base, sanitizePath(p))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", rendering.New("Generator can not find template.", "Generator can not find template: "+full)
	}
	g.log.Info("Template located: %s", full)
	return full, nil
}

func (g *Generator) outputPath(base, p string) (string, error) {
	if err := assets.CheckTraversal(p); err != nil {
		return "", err
	}
	full := filepath.Join(base, sanitizePath(p))
	info, err := os.Stat(filepath.Dir(full))
	if err != nil || !info.IsDir() {
		return "", rendering.New("Generator can not find output directory.",
			"Generator can not find output directory to create "+full)
	}
	g.log.Info("Output directory located: %s", full)
	return full, nil
}

// Generate renders the template into the output document. When a pass
// leaves markers behind, for instance because the data itself holds
// markers, the output is rendered again, up to Config.MaxRenderDepth extra
// passes. Markers still present after that are left as they are.
func (g *Generator) Generate(ctx context.Context, req Request) error {
	err := g.generate(ctx, req)
	if err != nil {
		re := rendering.From(err)
		g.log.Error("%s", re.Diagnostic())
		return re
	}
	return nil
}

func (g *Generator) generate(ctx context.Context, req Request) error {
	base, err := filepath.Abs(req.BasePath)
	if err != nil {
		return rendering.Wrap(err, "Generator can not find base path.", "Generator can not find base path: "+req.BasePath)
	}
	source, err := g.templatePath(base, req.TemplatePath)
	if err != nil {
		return err
	}
	output, err := g.outputPath(base, req.OutputPath)
	if err != nil {
		return err
	}

	scratch := req.ImageDirectory
	if scratch == "" {
		scratch = g.config.ImageDirectory
	}
	if scratch == "" {
		scratch = filepath.Join(filepath.Dir(output), "images")
	}
	if err := assets.CheckTraversal(scratch); err != nil {
		return err
	}
	fetcher, err := assets.NewFetcher(assets.FetchOptions{
		AllowRemote: g.config.AllowExternalDownload,
		Timeout:     g.config.FetchTimeout,
		Proxies:     g.config.Proxies,
		ScratchDir:  scratch,
	}, g.log)
	if err != nil {
		return rendering.Wrap(err, "Invalid proxy configuration", err.Error())
	}

	g.log.Info("Starting new report generation. Base path: %s. Template path: %s. Output path: %s", base, source, output)

	for level := 1; ; level++ {
		if err := ctx.Err(); err != nil {
			return rendering.Wrap(err, "Report generation cancelled")
		}
		g.log.Info("Start rendering for level %d", level)

		p := &pass{
			ctx:          ctx,
			base:         base,
			styleMapping: req.StyleMapping,
			fetcher:      fetcher,
			log:          g.log,
		}
		residual, err := p.run(source, output, template.Data(req.Data))
		if err != nil {
			return wrapTemplateError(err, source)
		}
		g.log.Info("Document generated for level %d", level)

		if residual && level <= g.config.MaxRenderDepth {
			g.log.Info("Variable found in generated document. Restarting rendering process ...")
			source = output
			continue
		}
		if level > g.config.MaxRenderDepth {
			g.log.Info("Rendering depth level exceeded, leaving render loop")
		}
		break
	}

	g.log.Info("Rendering process completed !")
	return nil
}

// wrapTemplateError names the template in the message of err. A rendering
// error raised by a callable keeps its own message and diagnostic.
func wrapTemplateError(err error, source string) error {
	name := filepath.Base(source)
	var re *rendering.Error
	if errors.As(err, &re) {
		return rendering.Wrap(err, fmt.Sprintf("%s (%s)", re.Message, name), re.Diagnostic())
	}
	return rendering.Wrap(err, fmt.Sprintf("%s (%s)", err.Error(), name))
}

// pass is one rendering of a template. Everything it allocates belongs to
// the package it renders.
type pass struct {
	ctx          context.Context
	base         string
	styleMapping map[string]string
	fetcher      *assets.Fetcher
	log          *logging.Logger

	pkg       *docx.Package
	styles    *styles.Registry
	numbers   *numbering.Allocator
	pageWidth int64
}

// run renders source into output and reports whether markers remain.
func (p *pass) run(source, output string, data template.Data) (bool, error) {
	pkg, err := docx.Open(source)
	if err != nil {
		return false, err
	}
	body, err := pkg.Body()
	if err != nil {
		return false, err
	}
	if err := pkg.EnsureDocumentNamespaces(); err != nil {
		return false, err
	}
	registry, err := styles.Load(body)
	if err != nil {
		return false, err
	}
	p.pkg = pkg
	p.styles = registry
	p.pageWidth = pkg.PageContentWidth()

	if err := template.NewEngine(p.functions(true), p.log).Render(body, data); err != nil {
		return false, err
	}
	for _, part := range pkg.HeaderFooterParts() {
		doc, err := pkg.XMLPart(part)
		if err != nil {
			return false, err
		}
		if doc.Root() == nil {
			continue
		}
		if err := template.NewEngine(p.functions(false), p.log).Render(doc.Root(), data); err != nil {
			return false, err
		}
	}

	residual := hasResidualMarkers(body)
	if err := pkg.Save(output); err != nil {
		return false, rendering.Wrap(err, "Generator can not write the output document.", err.Error())
	}
	return residual, nil
}

// numbering loads the numbering definitions on first use, creating the
// part when the template has none.
func (p *pass) numbering() (*numbering.Allocator, error) {
	if p.numbers == nil {
		root, err := p.pkg.Numbering()
		if err != nil {
			return nil, err
		}
		p.numbers = numbering.New(root)
	}
	return p.numbers, nil
}

// hasResidualMarkers scans every paragraph of body, table cells included.
func hasResidualMarkers(body *etree.Element) bool {
	for _, para := range docx.Descendants(body, "w:p") {
		if residualMarkerRegex.MatchString(docx.ParagraphText(para)) {
			return true
		}
	}
	return false
}
