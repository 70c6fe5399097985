package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vitaliisemenov/gatehouse/internal/config"
	"github.com/vitaliisemenov/gatehouse/internal/metrics"
)

// shutdownTimeout bounds the drain of in-flight requests on exit.
const shutdownTimeout = 10 * time.Second

// Server runs one listener per ServerConfig plus the optional metrics
// listener. The loaded configuration is immutable and shared by
// reference across every connection.
type Server struct {
	cfg *config.Config
	log *slog.Logger
}

// New builds a server over a loaded configuration.
func New(cfg *config.Config, log *slog.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Run binds every listener and serves until ctx is canceled. A bind
// failure is fatal; accept and TLS handshake failures are logged and
// the connection dropped.
func (s *Server) Run(ctx context.Context) error {
	observe := s.cfg.Metrics != ""

	var wg sync.WaitGroup
	errCh := make(chan error, len(s.cfg.Servers)+1)
	var servers []*http.Server

	for _, sc := range s.cfg.Servers {
		ln, err := net.Listen("tcp", sc.Listen)
		if err != nil {
			return fmt.Errorf("cannot bind to address %q: %w", sc.Listen, err)
		}

		srv := &http.Server{
			Handler: newSiteHandler(sc, s.log, observe),
			// Handshake and per-connection errors land here; they are
			// logged and never stop the acceptor.
			ErrorLog: slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
		}
		servers = append(servers, srv)

		tlsEnabled := sc.TLS != nil
		if tlsEnabled {
			srv.TLSConfig = sc.TLS.ServerConfig()
		}

		s.log.Info("listener starting", "addr", sc.Listen, "tls", tlsEnabled, "sites", len(sc.Sites))

		wg.Add(1)
		go func(srv *http.Server, ln net.Listener, tlsEnabled bool) {
			defer wg.Done()
			var err error
			if tlsEnabled {
				err = srv.ServeTLS(ln, "", "")
			} else {
				err = srv.Serve(ln)
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv, ln, tlsEnabled)
	}

	if observe {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(ctx, s.cfg.Metrics, s.log); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	wg.Wait()
	return nil
}
