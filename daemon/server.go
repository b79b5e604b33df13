package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/gammazero/workerpool"
	"golang.org/x/sync/errgroup"

	"github.com/pterodactyl/hangar/metrics"
	"github.com/pterodactyl/hangar/session"
)

// Config holds the settings for the line server.
type Config struct {
	// Address is the host:port to listen on.
	Address string
	// MaxSessions is the number of connections served at the same time. Any
	// further connections wait until a slot frees up.
	MaxSessions int
	// IdleTimeout closes a connection that has not sent a line for this long. A
	// zero value disables the timeout.
	IdleTimeout time.Duration
	// CommandsPerSecond and CommandBurst configure the token bucket applied to
	// every connection. A rate of zero disables limiting.
	CommandsPerSecond float64
	CommandBurst      int64
	// MinPasswordLength is passed through to the interpreter of each connection.
	MinPasswordLength int

	Session session.Config
	Metrics *metrics.Metrics
}

// Server accepts client connections and serves each of them with its own
// Session and Interpreter.
type Server struct {
	cfg  Config
	pool *workerpool.WorkerPool

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	listener net.Listener
	ready    chan struct{}
}

// New returns a Server for the given configuration.
func New(c Config) *Server {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 64
	}
	return &Server{
		cfg:   c,
		pool:  workerpool.New(c.MaxSessions),
		conns: make(map[net.Conn]struct{}),
		ready: make(chan struct{}),
	}
}

// Ready returns a channel that is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address the server is listening on. This is only valid once
// the channel returned by Ready has been closed.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on the configured address and serves connections until the
// context is canceled.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return errors.Wrap(err, "daemon: failed to listen")
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on the listener until the context is canceled. Once
// it returns the listener and every open connection have been closed and all of
// the connection handlers have finished.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	close(s.ready)

	log.WithField("listen", l.Addr().String()).Info("line server listening for connections")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		_ = l.Close()
		s.closeAll()
		return nil
	})
	g.Go(func() error {
		// Once the accept loop exits, for whatever reason, everything else needs
		// to be torn down as well.
		defer cancel()
		return s.accept(ctx, l)
	})

	err := g.Wait()
	s.pool.StopWait()

	log.Info("line server stopped")
	return err
}

func (s *Server) accept(ctx context.Context, l net.Listener) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond * 5
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			wait := b.NextBackOff()
			log.WithField("error", err).WithField("retry_in", wait).Warn("failed to accept connection")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		b.Reset()

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.pool.Submit(func() {
			defer s.untrack(conn)
			s.handle(ctx, conn)
		})
	}
}

// track records an open connection so that it can be closed on shutdown. It
// returns false if the server is already shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	_ = conn.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}
