package daemon

import (
	"context"
	"net"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/juju/ratelimit"

	"github.com/pterodactyl/hangar/command"
	"github.com/pterodactyl/hangar/session"
	"github.com/pterodactyl/hangar/system"
)

const (
	ReplyRateLimited = "Too many commands, slow down"
	ReplyLineTooLong = "Command is too long, nothing was executed"
)

// handle serves a single connection until the client sends "exit", the
// connection is closed, or it has been idle for too long. An authenticated
// session is logged out once the connection ends.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	id := uuid.New().String()
	ip := system.TrimIPSuffix(conn.RemoteAddr().String())
	logger := log.WithFields(log.Fields{"subsystem": "daemon", "session": id, "ip": ip})

	s.cfg.Metrics.SessionOpened()
	defer s.cfg.Metrics.SessionClosed()

	sess := session.New(s.cfg.Session, id, ip)
	interp := command.New(sess, command.Config{
		Metrics:           s.cfg.Metrics,
		MinPasswordLength: s.cfg.MinPasswordLength,
	})

	defer func() {
		if !sess.Authenticated() {
			return
		}
		// The parent context may already be canceled at this point, the logout
		// still needs to happen.
		qctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		sess.Quit(qctx)
	}()

	var bucket *ratelimit.Bucket
	if s.cfg.CommandsPerSecond > 0 {
		burst := s.cfg.CommandBurst
		if burst <= 0 {
			burst = 1
		}
		bucket = ratelimit.NewBucketWithRate(s.cfg.CommandsPerSecond, burst)
	}

	logger.Debug("accepted new client connection")

	s.extendDeadline(conn)
	var werr error
	err := system.ScanLines(conn, func(line []byte, truncated bool) bool {
		l := strings.TrimSpace(string(line))
		if l == "exit" && !truncated {
			return false
		}

		var reply string
		if bucket != nil && bucket.TakeAvailable(1) == 0 {
			reply = ReplyRateLimited
		} else if truncated {
			// Executing what is left of the line could write partial data.
			logger.WithField("limit", system.MaxLineSize).Warn("discarding command line that exceeds the maximum length")
			reply = ReplyLineTooLong
		} else {
			reply = interp.Execute(ctx, l)
		}

		if _, werr = conn.Write([]byte(reply + "\n")); werr != nil {
			return false
		}
		s.extendDeadline(conn)
		return true
	})

	if err == nil {
		err = werr
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			logger.Debug("closing idle client connection")
		} else {
			logger.WithField("error", err).Debug("client connection closed with error")
		}
	}

	logger.Debug("client connection closed")
}

func (s *Server) extendDeadline(conn net.Conn) {
	if s.cfg.IdleTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}
}
