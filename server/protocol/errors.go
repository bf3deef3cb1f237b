package protocol

import (
	"errors"
	"fmt"
)

// errors for parsing, all of them mean 400
var (
	ErrBadRequest = errors.New("bad request")

	ErrMalformedRequestLine = fmt.Errorf("%w: malformed request line", ErrBadRequest)
	ErrMalformedHeader      = fmt.Errorf("%w: malformed header", ErrBadRequest)
	ErrNoHeaders            = fmt.Errorf("%w: no headers", ErrBadRequest)

	errLineTooLong = errors.New("line too long")
)
