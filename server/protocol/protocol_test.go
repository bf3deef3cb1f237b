package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfcemployee/spidey/server/engine"
)

func newRequest(raw string) *engine.Request {
	return &engine.Request{R: bufio.NewReader(strings.NewReader(raw))}
}

func BenchmarkAppendHead(b *testing.B) {
	headers := []engine.Header{{Name: "Content-Type", Value: "text/html"}}
	dst := make([]byte, 0, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		_ = AppendHead(dst[:0], StatusOK, headers)
	}
}

func BenchmarkParse(b *testing.B) {
	raw := "GET /very/long/path/for/testing/purposes?q=1 HTTP/1.0\r\n" +
		"Host: localhost:8080\r\n" +
		"User-Agent: spidey-benchmark\r\n" +
		"Accept: */*\r\n" +
		"\r\n"

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if err := Parse(newRequest(raw)); err != nil {
			b.Fatal(err)
		}
	}
}

func Test_parser_all_cases(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		expectError  error
		checkRequest func(t *testing.T, req *engine.Request)
	}{
		{
			name: "valid get request",
			raw:  "GET /index.html HTTP/1.0\r\nHost: localhost\r\nUser-Agent: test\r\n\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Equal(t, "GET", req.Method)
				assert.Equal(t, "/index.html", req.URI)
				assert.Equal(t, "", req.Query)
				assert.Equal(t, []engine.Header{
					{Name: "Host", Value: "localhost"},
					{Name: "User-Agent", Value: "test"},
				}, req.Headers)
			},
		},
		{
			name: "query split at first question mark",
			raw:  "GET /cgi/env.sh?q=foo?bar&x=1 HTTP/1.0\r\nHost: h\r\n\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Equal(t, "/cgi/env.sh", req.URI)
				assert.Equal(t, "q=foo?bar&x=1", req.Query)
			},
		},
		{
			name: "empty query after question mark",
			raw:  "GET /a? HTTP/1.0\r\nHost: h\r\n\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Equal(t, "/a", req.URI)
				assert.Equal(t, "", req.Query)
			},
		},
		{
			name: "extra whitespace and no version",
			raw:  "  POST\t /upload  \r\nHost: h\r\n\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Equal(t, "POST", req.Method)
				assert.Equal(t, "/upload", req.URI)
			},
		},
		{
			name: "bare LF line endings",
			raw:  "GET / HTTP/1.0\nHost: h\n\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Equal(t, "/", req.URI)
				assert.Len(t, req.Headers, 1)
			},
		},
		{
			name: "duplicate headers keep order",
			raw:  "GET / HTTP/1.0\r\nAccept: a\r\nHost: h\r\nAccept: b\r\n\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Equal(t, []engine.Header{
					{Name: "Accept", Value: "a"},
					{Name: "Host", Value: "h"},
					{Name: "Accept", Value: "b"},
				}, req.Headers)
			},
		},
		{
			name: "value keeps everything after leading blanks",
			raw:  "GET / HTTP/1.0\r\nUser-Agent: \t Mozilla/5.0 (X11; Linux x86_64)\r\nHost: a:b:c\r\n\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				ua, _ := req.Header("User-Agent")
				assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", ua)
				host, _ := req.Header("Host")
				assert.Equal(t, "a:b:c", host)
			},
		},
		{
			name: "stream ends after headers without blank line",
			raw:  "GET / HTTP/1.0\r\nHost: h\r\n",
			checkRequest: func(t *testing.T, req *engine.Request) {
				assert.Len(t, req.Headers, 1)
			},
		},
		{
			name: "body is left unread",
			raw:  "POST / HTTP/1.0\r\nHost: h\r\n\r\nbody",
			checkRequest: func(t *testing.T, req *engine.Request) {
				rest, _ := req.R.ReadString('\n')
				assert.Equal(t, "body", rest)
			},
		},
		{
			name:        "missing uri",
			raw:         "GET\r\n",
			expectError: ErrMalformedRequestLine,
		},
		{
			name:        "empty stream",
			raw:         "",
			expectError: ErrMalformedRequestLine,
		},
		{
			name:        "blank request line",
			raw:         "\r\nHost: h\r\n\r\n",
			expectError: ErrMalformedRequestLine,
		},
		{
			name:        "uri is only a query",
			raw:         "GET ?x=1 HTTP/1.0\r\nHost: h\r\n\r\n",
			expectError: ErrMalformedRequestLine,
		},
		{
			name:        "request line too long",
			raw:         "GET /" + strings.Repeat("a", MaxLineSize) + " HTTP/1.0\r\nHost: h\r\n\r\n",
			expectError: ErrMalformedRequestLine,
		},
		{
			name:        "malformed header",
			raw:         "GET / HTTP/1.0\r\nHost: h\r\nNoColonHeader\r\n\r\n",
			expectError: ErrMalformedHeader,
		},
		{
			name:        "header without value",
			raw:         "GET / HTTP/1.0\r\nHost:   \r\n\r\n",
			expectError: ErrMalformedHeader,
		},
		{
			name:        "header without name",
			raw:         "GET / HTTP/1.0\r\n : value\r\n\r\n",
			expectError: ErrMalformedHeader,
		},
		{
			name:        "header line too long",
			raw:         "GET / HTTP/1.0\r\nX-Big: " + strings.Repeat("b", MaxLineSize) + "\r\n\r\n",
			expectError: ErrMalformedHeader,
		},
		{
			name:        "no headers",
			raw:         "GET / HTTP/1.0\r\n\r\n",
			expectError: ErrNoHeaders,
		},
		{
			name:        "no headers and stream ends",
			raw:         "GET / HTTP/1.0\r\n",
			expectError: ErrNoHeaders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(tt.raw)
			err := Parse(req)

			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				assert.ErrorIs(t, err, ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, req.Method)
			assert.NotEmpty(t, req.URI)
			if tt.checkRequest != nil {
				tt.checkRequest(t, req)
			}
		})
	}
}

func TestParse_TokenizesMethodAndURI(t *testing.T) {
	methods := []string{"GET", "HEAD", "POST", "BREW"}
	uris := []string{"/", "/a/b/c.txt", "/..%2f", "/dir/"}
	for _, m := range methods {
		for _, u := range uris {
			for _, v := range []string{"HTTP/1.0", "HTTP/1.1"} {
				req := newRequest(fmt.Sprintf("%s %s %s\r\nHost: x\r\n\r\n", m, u, v))
				require.NoError(t, Parse(req))
				assert.Equal(t, m, req.Method)
				assert.Equal(t, u, req.URI)
			}
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "200 OK"},
		{StatusBadRequest, "400 Bad Request"},
		{StatusNotFound, "404 Not Found"},
		{StatusInternalServerError, "500 Internal Server Error"},
		{Status(418), "500 Internal Server Error"},
		{Status(-1), "500 Internal Server Error"},
		{Status(9999), "500 Internal Server Error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestWriteHead(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHead(&buf, StatusNotFound, []engine.Header{{Name: "Content-Type", Value: "text/html"}})
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 404 Not Found\r\nContent-Type: text/html\r\n\r\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteHead(&buf, StatusOK, nil))
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\n", buf.String())
}
