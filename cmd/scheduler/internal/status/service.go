package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Service runs a Server under a supervisor.
type Service struct {
	server          *Server
	addr            string
	shutdownTimeout time.Duration
}

func NewService(s *Server, port int) *Service {
	return &Service{server: s, addr: fmt.Sprintf(":%d", port), shutdownTimeout: 5 * time.Second}
}

func (s *Service) String() string { return "status-server" }

func (s *Service) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("status server listening", "addr", s.addr)
		if err := s.server.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("status server shutdown", "error", err)
		}
		return ctx.Err()
	}
}
