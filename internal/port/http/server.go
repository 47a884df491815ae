package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpServer *http.Server
	log        logger.Logger
	port       string
}

func NewServer(
	log logger.Logger,
	port string,
	readTimeout time.Duration,
	writeTimeout time.Duration,
	handler *CartHandler,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/cart", handler.GetCart)
	r.Get("/cart/summary", handler.GetSummary)
	r.Post("/cart/items", handler.AddItem)
	r.Put("/cart/items/{itemID}", handler.UpdateItem)
	r.Delete("/cart/items/{itemID}", handler.RemoveItem)
	r.Delete("/cart", handler.ClearCart)

	r.Post("/session", handler.Login)
	r.Delete("/session", handler.Logout)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      r,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		log:  log,
		port: port,
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server is starting on port %s", s.port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server is shutting down...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
