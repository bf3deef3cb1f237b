// CGI: run the resolved file and copy its stdout to the client. See RFC 3875.
package router

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/kfcemployee/spidey/server/engine"
	"github.com/kfcemployee/spidey/server/protocol"
)

// request headers exported to CGI programs, others are not passed
var cgiHeaders = map[string]string{
	"Host":            "HTTP_HOST",
	"Connection":      "HTTP_CONNECTION",
	"Accept":          "HTTP_ACCEPT",
	"Accept-Encoding": "HTTP_ACCEPT_ENCODING",
	"Accept-Language": "HTTP_ACCEPT_LANGUAGE",
	"User-Agent":      "HTTP_USER_AGENT",
}

// Environ returns the environment for running r.Path as a CGI program:
// our own environment plus the request variables, built fresh per request
func (rt *Router) Environ(r *engine.Request) []string {
	env := append(os.Environ(),
		"DOCUMENT_ROOT="+rt.res.Root(),
		"QUERY_STRING="+r.Query,
		"REMOTE_ADDR="+r.Host,
		"REMOTE_PORT="+r.Port,
		"REQUEST_METHOD="+r.Method,
		"REQUEST_URI="+r.URI,
		"SCRIPT_FILENAME="+r.Path,
		"SERVER_PORT="+rt.port,
	)
	for _, h := range r.Headers {
		if key, ok := cgiHeaders[h.Name]; ok {
			env = append(env, key+"="+h.Value) // exec keeps the last duplicate
		}
	}
	return env
}

// cgi writes the program's output verbatim; the program is expected to
// produce its own status line and headers. exit status is not checked
func (rt *Router) cgi(c *Context) protocol.Status {
	env := rt.Environ(c.Req)

	cmd, out, err := startCGI(env, c.Req.Path)
	if errors.Is(err, unix.ENOEXEC) {
		// no #! line, let the shell have it like popen(3) would
		c.Req.Log.Debug().Msg("cgi not executable by the kernel, retrying with " + shell)
		cmd, out, err = startCGI(env, shell, c.Req.Path)
	}
	if errors.Is(err, errPipe) {
		c.Req.Log.Error().Err(err).Msg("cgi pipe")
		return protocol.StatusInternalServerError
	}
	if err != nil {
		c.Req.Log.Debug().Err(err).Msg("cgi start")
		return protocol.StatusNotFound
	}
	c.Req.Log.Info().Str("script", c.Req.Path).Msg("executing cgi")

	werr := copyLines(c, out)
	if werr != nil {
		cmd.Process.Kill() // nobody reads the rest
	}
	if err := cmd.Wait(); err != nil {
		c.Req.Log.Debug().Err(err).Msg("cgi exited")
	}
	if werr == nil {
		werr = c.Flush()
	}

	if werr != nil {
		c.Req.Log.Debug().Err(werr).Msg("copy cgi output")
		return protocol.StatusInternalServerError
	}
	return protocol.StatusOK
}

const shell = "/bin/sh"

var errPipe = errors.New("cgi stdout pipe")

// start argv[len-1] as a cgi program, run from its own directory
func startCGI(env []string, argv ...string) (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Dir = filepath.Dir(argv[len(argv)-1])

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errPipe, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, out, nil
}

// copy src to c one line at a time; lines longer than a chunk go in pieces
func copyLines(c *Context, src io.Reader) error {
	br := bufio.NewReaderSize(src, engine.ChunkSize)
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 {
			if _, werr := c.Write(line); werr != nil {
				return werr
			}
		}
		if err == nil || errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return nil // EOF or read error, program is done with us
	}
}
