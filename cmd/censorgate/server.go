package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/flow"
	"github.com/BaSui01/censorgate/types"
)

const shutdownTimeout = 15 * time.Second

// Server is the HTTP surface of the gateway.
type Server struct {
	flow   *flow.Flow
	http   *http.Server
	logger *zap.Logger
}

// NewServer creates the HTTP server on the default port 8080.
func NewServer(f *flow.Flow, logger *zap.Logger) *Server {
	s := &Server{
		flow:   f,
		logger: logger.With(zap.String("component", "http_server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/censor/text", s.handleText)
	mux.HandleFunc("POST /v1/censor/image", s.handleImage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         ":8080",
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
			ln <- err
		}
	}()
	select {
	case err := <-ln:
		return err
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("listening", zap.String("addr", s.http.Addr))
		return nil
	}
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then drains connections and
// closes the flow.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	if err := s.flow.Close(); err != nil {
		s.logger.Warn("flow close failed", zap.Error(err))
	}
}

type censorRequest struct {
	Content string            `json:"content"`
	Source  string            `json:"source"`
	Extra   map[string]string `json:"extra,omitempty"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req censorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, `{"error":"content is required"}`, http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.flow.SubmitText(r.Context(), req.Content, req.Source, req.Extra))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	var req censorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, `{"error":"content is required"}`, http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.flow.SubmitImage(r.Context(), req.Content, req.Source))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": Version})
}

func (s *Server) writeResult(w http.ResponseWriter, res *types.CensorResult) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}
