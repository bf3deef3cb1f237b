// process-per-connection strategy and the worker side of it
package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

const (
	workerEnv = "_SPIDEY_WORKER_" // set in a worker's environment
	workerFd  = 3                 // first of cmd.ExtraFiles
)

var errNoFile = errors.New("connection has no file descriptor")

// Forking isolates every connection in a fresh worker process.
// the worker is this executable started again with the connection as fd 3;
// it must call ServeWorker early in main (see IsWorker).
// the parent drops its copy of the connection right after the spawn and
// never waits for the worker: children are reaped in the background
type Forking struct {
	Path string   // worker executable, default os.Executable()
	Args []string // worker arguments
	Env  []string // added to the worker environment, e.g. server config
	Log  zerolog.Logger
}

// Serve never calls handle in this process, workers do
func (f *Forking) Serve(ctx context.Context, ln net.Listener, _ HandleFunc) error {
	path := f.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("worker executable: %w", err)
		}
		path = exe
	}

	stop := closeOnDone(ctx, ln, nil) // workers own their connections
	defer stop()

	acc := NewAcceptor(ln, f.Log)
	var bo backoff
	for {
		r, err := acc.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.Log.Error().Err(err).Msg("accept failed, skipping")
			bo.wait()
			continue
		}
		bo.reset()

		cmd, err := f.spawn(path, r.Conn)
		if err != nil {
			r.Log.Error().Err(err).Msg("spawn worker failed, dropping connection")
		} else {
			r.Log.Debug().Int("worker", cmd.Process.Pid).Msg("handed off")
			go f.reap(cmd)
		}
		r.Close() // parent's copy
	}
}

// start worker with a dup of conn as its fd 3
func (f *Forking) spawn(path string, conn net.Conn) (*exec.Cmd, error) {
	fc, ok := conn.(interface{ File() (*os.File, error) })
	if !ok {
		return nil, errNoFile
	}
	file, err := fc.File()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cmd := exec.Command(path, f.Args...)
	cmd.Env = append(os.Environ(), f.Env...)
	cmd.Env = append(cmd.Env, workerEnv+"=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr // workers log to the same place
	cmd.ExtraFiles = []*os.File{file}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (f *Forking) reap(cmd *exec.Cmd) { // goroutine
	err := cmd.Wait()
	f.Log.Debug().Int("worker", cmd.Process.Pid).
		Int("code", cmd.ProcessState.ExitCode()).Err(err).Msg("worker exited")
}

// IsWorker reports whether this process was started by Forking
func IsWorker() bool {
	return os.Getenv(workerEnv) != ""
}

// ServeWorker handles the single connection inherited from a Forking parent
func ServeWorker(handle HandleFunc, log zerolog.Logger) error {
	os.Unsetenv(workerEnv) // not for our own children

	file := os.NewFile(workerFd, "conn")
	if file == nil {
		return errNoFile
	}
	conn, err := net.FileConn(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("inherited connection: %w", err)
	}

	r, err := NewRequest(conn, log.With().Int("pid", os.Getpid()).Logger())
	if err != nil {
		conn.Close()
		return err
	}
	serveOne(r, handle)
	return nil
}
