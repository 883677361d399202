package rendering

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name           string
		err            *Error
		wantMessage    string
		wantDiagnostic string
	}{
		{
			name:           "short message only",
			err:            New("Generator can not find template."),
			wantMessage:    "Generator can not find template.",
			wantDiagnostic: "Generator can not find template.",
		},
		{
			name:           "with detail",
			err:            New("Generator can not find template.", "Generator can not find template: /tmp/x.docx"),
			wantMessage:    "Generator can not find template.",
			wantDiagnostic: "Generator can not find template: /tmp/x.docx",
		},
		{
			name:           "with cause",
			err:            Wrap(errors.New("boom"), "Image could not be added"),
			wantMessage:    "Image could not be added",
			wantDiagnostic: "Image could not be added: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
			if got := tt.err.Diagnostic(); got != tt.wantDiagnostic {
				t.Errorf("Diagnostic() = %q, want %q", got, tt.wantDiagnostic)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	original := New("Style default not defined")
	wrapped := fmt.Errorf("loading: %w", original)

	if got := From(wrapped); got != original {
		t.Errorf("From() did not return the wrapped rendering error")
	}

	plain := errors.New("plain failure")
	converted := From(plain)
	if converted.Message != "plain failure" || !errors.Is(converted, plain) {
		t.Errorf("From() = %+v, want message and cause of the plain error", converted)
	}

	if From(nil) != nil {
		t.Errorf("From(nil) should be nil")
	}
}

func TestWarningsDeduplicateInOrder(t *testing.T) {
	var w Warnings
	w.Add("Try to use %s on style %s but is not defined", "quote", "default")
	w.Add("Markdown ThematicBreak is not implemented. It will be ignored")
	w.Add("Try to use %s on style %s but is not defined", "quote", "default")

	var other Warnings
	other.Add("Markdown AutoLink is not implemented. It will be ignored")
	other.Add("Markdown ThematicBreak is not implemented. It will be ignored")
	w.Merge(&other)

	want := []string{
		"Try to use quote on style default but is not defined",
		"Markdown ThematicBreak is not implemented. It will be ignored",
		"Markdown AutoLink is not implemented. It will be ignored",
	}
	if diff := cmp.Diff(want, w.List()); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}
