package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dfir-iris/docx-generator/pkg/docxgen"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
)

const version = "0.1.0"

func usage(w io.Writer) {
	fmt.Fprintln(w, "docxgen - report generator for DOCX templates")
	fmt.Fprintln(w, "\nUsage: docxgen <command> [arguments]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  render -base DIR -template T -output O -data FILE   Render a template with data")
	fmt.Fprintln(w, "  version                                             Show version information")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "version":
		fmt.Printf("docxgen version %s\n", version)
	case "render":
		if err := render(os.Args[2:], os.Stderr); err != nil {
			var re *docxgen.RenderingError
			if errors.As(err, &re) {
				fmt.Fprintf(os.Stderr, "error: %s\n", re.Diagnostic())
			} else {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage(os.Stderr)
		os.Exit(1)
	}
}

func render(args []string, logOut io.Writer) error {
	config := docxgen.ConfigFromEnvironment()

	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(logOut)
	base := fs.String("base", ".", "directory template, output and asset paths are relative to")
	tmpl := fs.String("template", "", "template document")
	output := fs.String("output", "", "document to write")
	dataFile := fs.String("data", "", "JSON file holding the template data")
	stylesFile := fs.String("styles", "", "JSON file mapping rich-text node types to style ids")
	images := fs.String("images", config.ImageDirectory, "directory receiving downloaded pictures")
	fs.IntVar(&config.MaxRenderDepth, "max-depth", config.MaxRenderDepth, "extra passes allowed for markers produced by data")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&config.AllowExternalDownload, "allow-download", config.AllowExternalDownload, "fetch http(s) pictures")
	fs.DurationVar(&config.FetchTimeout, "fetch-timeout", config.FetchTimeout, "timeout of one picture download")
	httpProxy := fs.String("proxy-http", "", "proxy for http downloads")
	httpsProxy := fs.String("proxy-https", "", "proxy for https downloads")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tmpl == "" || *output == "" {
		return errors.New("-template and -output are required")
	}
	for scheme, proxy := range map[string]string{"http": *httpProxy, "https": *httpsProxy} {
		if proxy == "" {
			continue
		}
		if config.Proxies == nil {
			config.Proxies = make(map[string]string)
		}
		config.Proxies[scheme] = proxy
	}

	data := make(map[string]interface{})
	if *dataFile != "" {
		if err := readJSON(*dataFile, &data); err != nil {
			return err
		}
	}
	var mapping map[string]string
	if *stylesFile != "" {
		if err := readJSON(*stylesFile, &mapping); err != nil {
			return err
		}
	}

	logger := logging.NewLogger(logOut, logging.ParseLevel(config.LogLevel))
	gen, err := docxgen.New(config, logger)
	if err != nil {
		return err
	}
	return gen.Generate(context.Background(), docxgen.Request{
		BasePath:       *base,
		TemplatePath:   *tmpl,
		OutputPath:     *output,
		Data:           data,
		StyleMapping:   mapping,
		ImageDirectory: *images,
	})
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
