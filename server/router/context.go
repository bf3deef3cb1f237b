// context is ResponseWriter + Request !
package router

import (
	"github.com/kfcemployee/spidey/server/engine"
	"github.com/kfcemployee/spidey/server/protocol"
)

type Context struct {
	Req *engine.Request

	resH [4]engine.Header
	hC   int

	written bool // anything went to the connection
}

func newContext(r *engine.Request) *Context {
	return &Context{Req: r}
}

// !! Context as Response Writer

func (c *Context) SetHeader(key, val string) {
	if c.hC >= len(c.resH) {
		return
	}

	c.resH[c.hC] = engine.Header{Name: key, Value: val}
	c.hC++
}

// WriteHead sends status line and headers set so far
func (c *Context) WriteHead(st protocol.Status) error {
	c.written = true
	return protocol.WriteHead(c.Req.W, st, c.resH[:c.hC])
}

// Write sends body bytes as is
func (c *Context) Write(p []byte) (int, error) {
	c.written = true
	return c.Req.W.Write(p)
}

func (c *Context) WriteString(s string) (int, error) {
	c.written = true
	return c.Req.W.WriteString(s)
}

// Flush pushes buffered output to the peer
func (c *Context) Flush() error {
	return c.Req.W.Flush()
}

// Written reports whether any response bytes were produced
func (c *Context) Written() bool {
	return c.written
}
