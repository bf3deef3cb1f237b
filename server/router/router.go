// resolve request path and dispatch by file type
package router

import (
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/kfcemployee/spidey/server/engine"
	"github.com/kfcemployee/spidey/server/protocol"
)

// MimeTyper gives the content type of a file
type MimeTyper interface {
	TypeOf(path string) string
}

// Router turns a parsed request into a response: directory listing,
// file contents, CGI output or an error page
type Router struct {
	res  *Resolver
	mime MimeTyper
	port string // server port, for CGI
	log  zerolog.Logger
}

func New(res *Resolver, mime MimeTyper, port string, log zerolog.Logger) *Router {
	return &Router{
		res:  res,
		mime: mime,
		port: port,
		log:  log,
	}
}

// Serve resolves r.URI and dispatches; unresolvable uris get 404
func (rt *Router) Serve(r *engine.Request) protocol.Status {
	path, err := rt.res.Resolve(r.URI)
	if err != nil {
		r.Log.Debug().Str("uri", r.URI).Msg("cannot resolve")
		return rt.Error(r, protocol.StatusNotFound)
	}
	r.Path = path

	return rt.Dispatch(r)
}

// Dispatch picks a handler by the type of r.Path.
// a handler failing before it wrote anything gets the error page written for it
func (rt *Router) Dispatch(r *engine.Request) protocol.Status {
	c := newContext(r)

	st := rt.dispatch(c)
	if st != protocol.StatusOK && !c.Written() {
		return rt.writeError(c, st)
	}
	return st
}

func (rt *Router) dispatch(c *Context) protocol.Status {
	path := c.Req.Path

	info, err := os.Lstat(path)
	if err != nil {
		c.Req.Log.Debug().Err(err).Msg("stat failed")
		return protocol.StatusNotFound
	}

	switch {
	case info.IsDir():
		c.Req.Log.Debug().Msg("type: directory")
		return rt.browse(c)
	case unix.Access(path, unix.X_OK) == nil:
		c.Req.Log.Debug().Msg("type: cgi")
		return rt.cgi(c)
	case unix.Access(path, unix.R_OK) == nil:
		c.Req.Log.Debug().Msg("type: file")
		return rt.file(c)
	}

	c.Req.Log.Debug().Msg("type: neither executable nor readable")
	return protocol.StatusBadRequest
}
