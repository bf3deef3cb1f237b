package router

import (
	"net/url"
	"os"
	"strings"

	"github.com/kfcemployee/spidey/server/engine"
	"github.com/kfcemployee/spidey/server/protocol"
)

// browse lists the directory as html links relative to the request uri
func (rt *Router) browse(c *Context) protocol.Status {
	entries, err := os.ReadDir(c.Req.Path) // sorted by name
	if err != nil {
		c.Req.Log.Debug().Err(err).Msg("cannot read directory")
		return protocol.StatusBadRequest
	}

	// links go back through the resolver, which unescapes them once
	base := c.Req.URI
	if dec, err := url.PathUnescape(base); err == nil {
		base = dec
	}
	base = escapePath(base)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c.SetHeader("Content-Type", "text/html")
	c.WriteHead(protocol.StatusOK)
	c.WriteString("<ul>\n")
	for _, e := range entries {
		href := htmlEscape(base + url.PathEscape(e.Name()))
		c.WriteString(`<li><a href="` + href + `">` + htmlEscape(e.Name()) + "</a></li>\n")
	}
	c.WriteString("</ul>\n")

	if err := c.Flush(); err != nil {
		c.Req.Log.Debug().Err(err).Msg("write listing")
		return protocol.StatusInternalServerError
	}
	return protocol.StatusOK
}

// file streams the file with its content type
func (rt *Router) file(c *Context) protocol.Status {
	f, err := os.Open(c.Req.Path)
	if err != nil {
		c.Req.Log.Debug().Err(err).Msg("cannot open file")
		return protocol.StatusInternalServerError
	}
	defer f.Close()

	c.SetHeader("Content-Type", rt.mime.TypeOf(c.Req.Path))
	if err := c.WriteHead(protocol.StatusOK); err != nil {
		return protocol.StatusInternalServerError
	}
	if _, err := engine.CopyChunks(c, f); err != nil {
		c.Req.Log.Debug().Err(err).Msg("stream file")
		return protocol.StatusInternalServerError
	}
	if err := c.Flush(); err != nil {
		c.Req.Log.Debug().Err(err).Msg("stream file")
		return protocol.StatusInternalServerError
	}
	return protocol.StatusOK
}

// Error writes the error page for st on r and returns st
func (rt *Router) Error(r *engine.Request, st protocol.Status) protocol.Status {
	return rt.writeError(newContext(r), st)
}

func (rt *Router) writeError(c *Context, st protocol.Status) protocol.Status {
	c.hC = 0
	c.SetHeader("Content-Type", "text/html")
	c.WriteHead(st)
	c.WriteString("<h1>" + st.String() + "</h1>\n")

	if err := c.Flush(); err != nil {
		c.Req.Log.Debug().Err(err).Msg("write error page")
	}
	return st
}

// escape every segment of a decoded path, keeping the slashes
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

func htmlEscape(s string) string { return htmlEscaper.Replace(s) }

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
