// Package assets locates the files templates refer to: uuid-named folders
// under the base path, plain local paths and remote images.
package assets

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
)

// ValidUUID reports whether s is a version 4 uuid written in canonical
// lower-case form, with or without hyphens.
func ValidUUID(s string) bool {
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	if id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		return false
	}
	return hex.EncodeToString(id[:]) == strings.ReplaceAll(s, "-", "")
}

// ResolveUUIDFile returns the absolute path of the single file stored in
// base/<id>. label prefixes error messages, e.g. "Picture".
func ResolveUUIDFile(base, id, label string) (string, error) {
	if !ValidUUID(id) {
		return "", rendering.Newf("%s. File uuid is not a valid uuid: %s", label, id)
	}

	folder := filepath.Join(base, id)
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return "", rendering.New(label+". Generator can not find file folder.",
			label+". Processed folder does not exist: "+folder)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", rendering.Wrap(err, label+". Internal error during file processing")
	}
	switch {
	case len(entries) == 0:
		return "", rendering.New(label+". Generator can not find file.",
			label+". No file found in uuid folder. Uuid value: "+id)
	case len(entries) > 1:
		return "", rendering.New(label+". Internal error during file processing",
			label+". Multiple files found in uuid folder. Uuid value: "+id)
	}

	return filepath.Abs(filepath.Join(folder, entries[0].Name()))
}

// CheckTraversal rejects any path containing "..".
func CheckTraversal(path string) error {
	if strings.Contains(path, "..") {
		return rendering.New("Invalid filename provided", "Invalid filename provided: "+path)
	}
	return nil
}

// LocalFile resolves a template-supplied path against base and checks that
// it names a regular file.
func LocalFile(base, path string) (string, error) {
	if err := CheckTraversal(path); err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", rendering.New("The path provided is not a correct file",
			"The path provided is not a correct file: "+path)
	}
	return filepath.Abs(path)
}

// EnsureDir creates dir and its parents. An existing directory is fine.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rendering.Wrap(err, "Unable to create directory", dir)
	}
	return nil
}
