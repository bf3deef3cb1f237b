package server

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"

	"github.com/kfcemployee/spidey/server/engine"
	"github.com/kfcemployee/spidey/server/mime"
	"github.com/kfcemployee/spidey/server/protocol"
	"github.com/kfcemployee/spidey/server/router"
)

// Server ties it together: parse -> resolve -> dispatch -> log,
// with connections handed out by the configured strategy
type Server struct {
	conf  Config
	rt    *router.Router
	strat engine.Strategy
	log   zerolog.Logger
}

func New(conf Config, log zerolog.Logger) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	types, err := mime.Load(conf.MimeTypesPath, conf.DefaultMimeType)
	if err != nil {
		log.Warn().Err(err).Msg("mime types not loaded, using builtin table")
		types = mime.Builtin(conf.DefaultMimeType)
	}

	res, err := router.NewResolver(conf.Root)
	if err != nil {
		return nil, err
	}
	conf.Root = res.Root() // workers may not share our cwd

	s := &Server{
		conf: conf,
		rt:   router.New(res, types, conf.Port, log),
		log:  log,
	}

	switch conf.Mode {
	case ModeForking:
		s.strat = &engine.Forking{Args: os.Args[1:], Env: conf.Environ(), Log: log}
	case ModeConcurrent:
		s.strat = &engine.Concurrent{Workers: conf.Workers, Log: log}
	default:
		s.strat = &engine.Sequential{Log: log}
	}
	return s, nil
}

func (s *Server) Config() Config { return s.conf }

// Handle serves one request; failures end as an error page, never as an error
func (s *Server) Handle(r *engine.Request) {
	var st protocol.Status
	if err := protocol.Parse(r); err != nil {
		r.Log.Debug().Err(err).Msg("parse")
		st = s.rt.Error(r, protocol.StatusBadRequest)
	} else {
		st = s.rt.Serve(r)
	}

	r.Log.Info().
		Str("method", r.Method).
		Str("uri", r.URI).
		Str("status", st.String()).
		Msg("served")
}

// Serve runs the strategy on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("root", s.conf.Root).
		Str("mode", string(s.conf.Mode)).
		Msg("serving")

	return s.strat.Serve(ctx, ln, s.Handle)
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := engine.Listen(s.conf.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.conf.Port, err)
	}
	defer ln.Close()

	return s.Serve(ctx, ln)
}

// ServeWorker handles the connection a forking parent handed us
func (s *Server) ServeWorker() error {
	return engine.ServeWorker(s.Handle, s.log)
}

// RunWorker is the worker process entry point: config comes from the
// environment the parent set up
func RunWorker(log zerolog.Logger) error {
	s, err := New(ConfigFromEnv(), log)
	if err != nil {
		return err
	}
	return s.ServeWorker()
}
