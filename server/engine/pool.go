// buffer pool and worker pool
package engine

import (
	"context"
	"net"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

const (
	ChunkSize = 8192 // read/write chunk and per-connection buffer size
	jobsSize  = 1024 // accepted connections waiting for a worker
)

// pool for chunk buffers
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

func getBuf() []byte {
	return *bufPool.Get().(*[]byte)
}

func putBuf(b []byte) {
	b = b[:ChunkSize]
	bufPool.Put(&b)
}

// Concurrent handles connections in a fixed pool of goroutines.
// every accepted Request goes to exactly one worker, so nothing is shared
type Concurrent struct {
	Workers int // 0 means runtime.NumCPU()
	Log     zerolog.Logger
}

func (c *Concurrent) Serve(ctx context.Context, ln net.Listener, handle HandleFunc) error {
	var live inflight
	stop := closeOnDone(ctx, ln, &live)
	defer stop()

	jobs := make(chan *Request, jobsSize)
	wg := startWorkerPool(jobs, c.workers(), handle, &live)

	acc := NewAcceptor(ln, c.Log)
	var bo backoff
	for {
		r, err := acc.Accept()
		if err != nil {
			if ctx.Err() != nil {
				close(jobs)
				wg.Wait()
				return nil
			}
			c.Log.Error().Err(err).Msg("accept failed, skipping")
			bo.wait()
			continue
		}
		bo.reset()
		if !live.add(r.Conn) {
			r.Close() // shutting down
			continue
		}
		jobs <- r
	}
}

func (c *Concurrent) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// start simple worker pool draining jobs until it is closed
func startWorkerPool(jobs <-chan *Request, n int, handle HandleFunc, live *inflight) *sync.WaitGroup {
	wg := new(sync.WaitGroup)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				serveOne(r, handle)
				live.remove(r.Conn)
			}
		}()
	}
	return wg
}
