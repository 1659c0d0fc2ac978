package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const bindRetryDelay = 3 * time.Second

type Server struct {
	httpServer *http.Server
}

func New(port string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    port,
			Handler: h2c.NewHandler(handler, &http2.Server{}),
		},
	}
}

// Start serves until shutdown. A failed bind is retried once after a fixed
// delay; a second failure is fatal to the caller.
func (s *Server) Start() error {
	log.Printf("Starting gateway on %s", s.httpServer.Addr)
	err := s.listenAndServe()
	if err == nil {
		return nil
	}
	log.Printf("Listen on %s failed: %v (retrying once in %s)", s.httpServer.Addr, err, bindRetryDelay)
	time.Sleep(bindRetryDelay)
	return s.listenAndServe()
}

func (s *Server) listenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
