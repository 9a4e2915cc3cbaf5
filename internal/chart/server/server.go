// Package server hosts the chart page, its websocket feed and a small JSON API.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"livechart/internal/chart/figure"
	"livechart/internal/chart/series"

	"go.uber.org/zap"
)

//go:embed static/index.html
var static embed.FS

// Catalog exposes the series the API reports.
type Catalog interface {
	Snapshot() series.Snapshot
	Len() int
}

// Broadcaster is the websocket side of the chart.
type Broadcaster interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Clients() int
}

// FigureSource builds the figure for the current snapshot.
type FigureSource interface {
	Figure() figure.Figure
}

type Server struct {
	catalog Catalog
	hub     Broadcaster
	figures FigureSource
	logger  *zap.Logger

	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func New(addr string, shutdownTimeout time.Duration, catalog Catalog, hub Broadcaster,
	figures FigureSource, logger *zap.Logger) *Server {
	s := &Server{
		catalog:         catalog,
		hub:             hub,
		figures:         figures,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/figure", s.handleFigure)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("chart server listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("chart server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.catalog.Snapshot())
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.figures.Figure())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"series":  s.catalog.Len(),
		"clients": s.hub.Clients(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
