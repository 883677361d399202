package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderArguments(t *testing.T) {
	dir := t.TempDir()
	badJSON := filepath.Join(dir, "data.json")
	if err := os.WriteFile(badJSON, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing template", []string{"-output", "out.docx"}, "-template and -output are required"},
		{"unknown flag", []string{"-colour"}, "flag provided but not defined"},
		{"unreadable data", []string{"-template", "t.docx", "-output", "o.docx", "-data", badJSON}, "data.json"},
		{"bad log level", []string{"-template", "t.docx", "-output", "o.docx", "-log-level", "loud"}, "Invalid generator configuration"},
		{"missing template file", []string{"-base", dir, "-template", "t.docx", "-output", "o.docx"}, "Generator can not find template."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := render(tt.args, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("render() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
