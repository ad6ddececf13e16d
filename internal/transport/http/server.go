package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Addr            string        // ":8080"
	ReadTimeout     time.Duration // 15s, только заголовки
	IdleTimeout     time.Duration // 60s
	ShutdownTimeout time.Duration // 10s
}

type Server struct {
	cfg Config
	srv *http.Server

	// вызывается при остановке до Shutdown: hijacked WebSocket-соединения
	// Shutdown не закрывает. ctx ограничен ShutdownTimeout.
	onShutdown func(ctx context.Context)
}

// WriteTimeout на весь сервер не ставим: WebSocket-сессии живут долго.
func New(cfg Config, handler http.Handler, onShutdown func(ctx context.Context)) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return &Server{
		cfg:        cfg,
		srv:        s,
		onShutdown: onShutdown,
	}
}

// Run запускает HTTP-сервер и блокирует до завершения ctx.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("http server started", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if s.onShutdown != nil {
			s.onShutdown(shCtx)
		}
		if err := s.srv.Shutdown(shCtx); err != nil {
			slog.Warn("http server shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
