// accept loop and concurrency strategies
package engine

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// callback for handling one request; the strategy closes r after it returns
type HandleFunc func(r *Request)

// Strategy decides where each accepted connection is handled.
// Serve loops until ctx is cancelled (returns nil) or a fatal error
type Strategy interface {
	Serve(ctx context.Context, ln net.Listener, handle HandleFunc) error
}

// Acceptor turns accepted connections into Requests
type Acceptor struct {
	ln  net.Listener
	log zerolog.Logger
}

func NewAcceptor(ln net.Listener, log zerolog.Logger) *Acceptor {
	return &Acceptor{ln: ln, log: log}
}

func (a *Acceptor) Accept() (*Request, error) {
	conn, err := a.ln.Accept()
	if err != nil {
		return nil, err
	}

	r, err := NewRequest(conn, a.log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.Log.Debug().Msg("accepted")
	return r, nil
}

// Sequential handles one connection at a time in the accepting goroutine.
// a slow client blocks everyone else; an accept failure stops the server
type Sequential struct {
	Log zerolog.Logger
}

func (s *Sequential) Serve(ctx context.Context, ln net.Listener, handle HandleFunc) error {
	var live inflight
	stop := closeOnDone(ctx, ln, &live)
	defer stop()

	acc := NewAcceptor(ln, s.Log)
	for {
		r, err := acc.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !live.add(r.Conn) {
			r.Close() // shutting down
			continue
		}
		serveOne(r, handle)
		live.remove(r.Conn)
	}
}

// run handler and close request on every path, panics included
func serveOne(r *Request, handle HandleFunc) {
	defer func() {
		if p := recover(); p != nil {
			r.Log.Error().Interface("panic", p).Msg("handler panicked")
		}
		if err := r.Close(); err != nil {
			r.Log.Debug().Err(err).Msg("close")
		}
	}()
	handle(r)
}

// close ln when ctx is done so a blocked Accept returns, and the live
// connections (if any) so handlers blocked on a silent peer return too.
// returned func releases the watcher
func closeOnDone(ctx context.Context, ln net.Listener, live *inflight) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
			if live != nil {
				live.closeAll()
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// connections accepted and not yet served to the end
type inflight struct {
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// add reports false once closeAll has run
func (in *inflight) add(c net.Conn) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return false
	}
	if in.conns == nil {
		in.conns = make(map[net.Conn]struct{})
	}
	in.conns[c] = struct{}{}
	return true
}

func (in *inflight) remove(c net.Conn) {
	in.mu.Lock()
	delete(in.conns, c)
	in.mu.Unlock()
}

func (in *inflight) closeAll() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.closed = true
	for c := range in.conns {
		c.Close() // the owner's Request.Close will just report it
	}
	in.conns = nil
}

// sleep between failing accepts so a broken listener doesn't spin
type backoff struct {
	d time.Duration
}

func (b *backoff) wait() {
	if b.d == 0 {
		b.d = 5 * time.Millisecond
	} else if b.d *= 2; b.d > time.Second {
		b.d = time.Second
	}
	time.Sleep(b.d)
}

func (b *backoff) reset() { b.d = 0 }
