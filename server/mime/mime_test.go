package mime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# This file maps Internet media types to unique file extension(s).

text/html			html htm
text/plain			txt text conf
  # indented comment
image/png			png
text/x-first		dup
text/x-second		dup
application/x-noext
`

func TestParse(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sample), "text/plain")
	require.NoError(t, err)

	tests := []struct {
		path, want string
	}{
		{"/srv/www/index.html", "text/html"},
		{"/srv/www/old.htm", "text/html"},
		{"/srv/www/notes.conf", "text/plain"},
		{"logo.png", "image/png"},
		{"a.dup", "text/x-first"},
		{"/srv/www/archive.tar.gz", "text/plain"}, // no rule for gz
		{"/srv/www/README", "text/plain"},         // no extension
		{"/srv/www.d/README", "text/plain"},       // dot in dir only
		{"/srv/www/INDEX.HTML", "text/plain"},     // rules are case-sensitive
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tbl.TypeOf(tt.path), tt.path)
	}
	assert.Equal(t, 7, tbl.Len())
	assert.Equal(t, "text/plain", tbl.Default())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mime.types")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	tbl, err := Load(path, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/png", tbl.TypeOf("x.png"))
	assert.Equal(t, "application/octet-stream", tbl.TypeOf("x.unknown"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), "text/plain")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuiltin(t *testing.T) {
	tbl := Builtin("application/octet-stream")
	assert.Equal(t, "text/html", tbl.TypeOf("index.html"))
	assert.Equal(t, "application/octet-stream", tbl.TypeOf("blob"))
}
