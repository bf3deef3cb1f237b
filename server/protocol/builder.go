package protocol

import (
	"io"

	"github.com/kfcemployee/spidey/server/engine"
)

// Status is the outcome of one request
type Status int

const (
	StatusOK                  Status = 200
	StatusBadRequest          Status = 400
	StatusNotFound            Status = 404
	StatusInternalServerError Status = 500
)

// lookup table for status lines
// i use flat list instead of map bc codes is fixed
var statusTable = [...]string{
	StatusOK:                  "200 OK",
	StatusBadRequest:          "400 Bad Request",
	StatusNotFound:            "404 Not Found",
	StatusInternalServerError: "500 Internal Server Error",
}

// String returns the status line text, unknown codes render as 500
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusTable) || statusTable[s] == "" {
		return statusTable[StatusInternalServerError]
	}
	return statusTable[s]
}

// for fast access
const (
	proto = "HTTP/1.0 "
	crlf  = "\r\n"
	colon = ": "
)

// AppendHead appends status line, headers and the blank line to dst
func AppendHead(dst []byte, st Status, headers []engine.Header) []byte {
	dst = append(dst, proto...)
	dst = append(dst, st.String()...)
	dst = append(dst, crlf...)

	for _, h := range headers {
		dst = append(dst, h.Name...)
		dst = append(dst, colon...)
		dst = append(dst, h.Value...)
		dst = append(dst, crlf...)
	}

	return append(dst, crlf...)
}

// WriteHead writes the response head to w in one call
func WriteHead(w io.Writer, st Status, headers []engine.Header) error {
	var buf [256]byte
	_, err := w.Write(AppendHead(buf[:0], st, headers))
	return err
}
