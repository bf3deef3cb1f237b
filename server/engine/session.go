// per-connection request state
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// header as received, name is not canonicalized
type Header struct {
	Name, Value string
}

// Request is the whole life of one accepted connection:
// acceptor creates it, parser fills method/uri/query/headers, router sets Path,
// strategy closes it after the handler returns
type Request struct {
	Conn net.Conn
	Host string // peer host, numeric
	Port string // peer port, numeric

	Method string
	URI    string // path part of the request uri, before '?'
	Query  string // part after the first '?', "" if there was none
	Path   string // resolved filesystem path, empty until resolved

	Headers []Header

	R   *bufio.Reader
	W   *bufio.Writer
	Log zerolog.Logger

	closed bool
}

// NewRequest wraps an accepted connection; it fails if the peer address
// cannot be split into numeric host and port
func NewRequest(conn net.Conn, log zerolog.Logger) (*Request, error) {
	host, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("peer address: %w", err)
	}

	return &Request{
		Conn: conn,
		Host: host,
		Port: port,
		R:    bufio.NewReaderSize(conn, ChunkSize),
		W:    bufio.NewWriterSize(conn, ChunkSize),
		Log:  log.With().Str("peer", net.JoinHostPort(host, port)).Logger(),
	}, nil
}

// Header returns the value of the first header named name
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Close flushes pending output and closes the connection.
// only the first call does anything
func (r *Request) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var ferr, cerr error
	if r.W != nil {
		ferr = r.W.Flush()
	}
	if r.Conn != nil {
		cerr = r.Conn.Close()
	}
	return errors.Join(ferr, cerr)
}
