// Package mime maps file extensions to content types using a mime.types
// style table:
//
//	# comment
//	text/html	html htm
//	image/png	png
//
// the first rule naming an extension wins.
package mime

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is an extension -> content type lookup with a fallback type
type Table struct {
	types map[string]string // extension without the dot
	def   string
}

// Load reads a table from the file at path
func Load(path, def string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mime types: %w", err)
	}
	defer f.Close()

	return Parse(f, def)
}

// Parse reads a table from r
func Parse(r io.Reader, def string) (*Table, error) {
	t := &Table{types: make(map[string]string), def: def}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		for _, ext := range fields[1:] {
			if _, ok := t.types[ext]; !ok {
				t.types[ext] = fields[0]
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mime types: %w", err)
	}
	return t, nil
}

// Builtin returns a table of common types, for hosts without a mime.types file
func Builtin(def string) *Table {
	t := &Table{types: make(map[string]string, len(defaultTypes)), def: def}
	for ext, typ := range defaultTypes {
		t.types[ext] = typ
	}
	return t
}

// TypeOf returns the content type for path by its extension,
// or the default type when there is no extension or no rule for it
func (t *Table) TypeOf(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return t.def
	}
	if typ, ok := t.types[ext]; ok {
		return typ
	}
	return t.def
}

// Default returns the fallback type
func (t *Table) Default() string { return t.def }

// Len returns the number of known extensions
func (t *Table) Len() int { return len(t.types) }

var defaultTypes = map[string]string{
	"7z":   "application/x-7z-compressed",
	"bin":  "application/octet-stream",
	"bmp":  "image/x-ms-bmp",
	"css":  "text/css",
	"gif":  "image/gif",
	"htm":  "text/html",
	"html": "text/html",
	"ico":  "image/x-icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"js":   "application/javascript",
	"json": "application/json",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"tar":  "application/x-tar",
	"txt":  "text/plain",
	"webp": "image/webp",
	"xml":  "text/xml",
	"zip":  "application/zip",
}
