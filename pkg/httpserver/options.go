package httpserver

import (
	"log/slog"
	"time"
)

// Option configures a Server. Zero and negative durations keep the default.
type Option func(*Server)

// WithAddr sets the listen address, e.g. ":8080" or "127.0.0.1:0".
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithTimeouts sets the read, write and idle timeouts of the underlying http.Server.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		setPositive(&s.readTimeout, read)
		setPositive(&s.writeTimeout, write)
		setPositive(&s.idleTimeout, idle)
	}
}

// WithReadHeaderTimeout bounds how long a client may take to send headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) { setPositive(&s.readHeaderTimeout, d) }
}

// WithShutdownTimeout sets how long in-flight requests may finish after Run's
// context is canceled.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { setPositive(&s.shutdownTimeout, d) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func setPositive(dst *time.Duration, d time.Duration) {
	if d > 0 {
		*dst = d
	}
}
