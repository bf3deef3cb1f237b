// spidey serves files, directory listings and CGI programs over HTTP/1.0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/kfcemployee/spidey/server"
	"github.com/kfcemployee/spidey/server/engine"
)

const usage = `Usage: %s [hcmMprv]
Options:
    -h            Display help message
    -c mode       Concurrency mode (single, forking, concurrent)
    -m path       Path to mimetypes file
    -M mimetype   Default mimetype
    -p port       Port to listen on
    -r root       Root directory
    -v            Debug logging
`

func main() {
	conf, verbose, err := parseFlags(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(1)
	}

	log := newLogger(verbose)

	// forked per connection: serve it and leave
	if engine.IsWorker() {
		if err := server.RunWorker(log); err != nil {
			log.Error().Err(err).Msg("worker")
			os.Exit(1)
		}
		return
	}

	s, err := server.New(conf, log)
	if err != nil {
		log.Error().Err(err).Msg("init")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.ListenAndServe(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}

// parseFlags fills a default config from the command line
func parseFlags(prog string, args []string, out io.Writer) (server.Config, bool, error) {
	conf := server.DefaultConfig()
	var mode string
	var verbose bool

	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprintf(out, usage, prog) }
	fs.StringVar(&mode, "c", string(conf.Mode), "")
	fs.StringVar(&conf.MimeTypesPath, "m", conf.MimeTypesPath, "")
	fs.StringVar(&conf.DefaultMimeType, "M", conf.DefaultMimeType, "")
	fs.StringVar(&conf.Port, "p", conf.Port, "")
	fs.StringVar(&conf.Root, "r", conf.Root, "")
	fs.BoolVar(&verbose, "v", false, "")

	if err := fs.Parse(args); err != nil {
		return conf, false, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return conf, false, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	conf.Mode = server.Mode(mode)
	return conf, verbose, nil
}

// console output on a terminal, json lines otherwise
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var log zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
