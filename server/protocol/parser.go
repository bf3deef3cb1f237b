// parse request line and headers from the connection stream
// only parser logic, nothing is written back
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kfcemployee/spidey/server/engine"
)

// longest line we accept, terminator included
const MaxLineSize = 8192

// Parse reads the request line and the header block of r.
// on success Method and URI are non-empty and there is at least one header
func Parse(r *engine.Request) error {
	if err := parseRequestLine(r); err != nil {
		return err
	}
	return parseHeaders(r)
}

// METHOD SP URI[?QUERY] SP VERSION, version is not checked
func parseRequestLine(r *engine.Request) error {
	line, err := readLine(r.R)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequestLine, err)
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("%w: %q", ErrMalformedRequestLine, chomp(line))
	}

	uri, query, _ := strings.Cut(fields[1], "?")
	if uri == "" {
		return fmt.Errorf("%w: empty uri", ErrMalformedRequestLine)
	}

	r.Method = fields[0]
	r.URI = uri
	r.Query = query // "" when there is no '?'
	return nil
}

// Name: Value lines until a blank line or end of stream.
// one bad line fails the whole request
func parseHeaders(r *engine.Request) error {
	r.Headers = r.Headers[:0]
	for {
		line, err := readLine(r.R)
		if errors.Is(err, errLineTooLong) {
			return fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		if err != nil {
			break // stream is over
		}

		// CRLF means that headers is over
		if line = chomp(line); line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		value = strings.TrimLeft(value, " \t")
		if !ok || name == "" || value == "" {
			return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}

		r.Headers = append(r.Headers, engine.Header{Name: name, Value: value})
	}

	if len(r.Headers) == 0 {
		return ErrNoHeaders
	}
	return nil
}

// read one line with its terminator, at most MaxLineSize bytes.
// a non-empty last line without terminator is returned as is
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		frag, err := br.ReadSlice('\n')
		if len(line)+len(frag) > MaxLineSize {
			return "", errLineTooLong
		}
		line = append(line, frag...)

		switch {
		case err == nil:
			return string(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return string(line), nil
		default:
			return "", err
		}
	}
}

func chomp(s string) string {
	return strings.TrimRight(s, "\r\n")
}
