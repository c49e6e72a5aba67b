package server

import (
	"net/http"
	"time"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Views
	mux.HandleFunc("/api/holdings", s.handleHoldings)
	mux.HandleFunc("/api/snapshot/", s.handleSnapshot)
	mux.HandleFunc("/api/index/performance", s.handleIndexPerformance)
	mux.HandleFunc("/api/conviction", s.handleConviction)
	mux.HandleFunc("/api/turnover", s.handleTurnover)
	mux.HandleFunc("/api/heatmap", s.handleHeatmap)

	// Charts
	mux.HandleFunc("/api/charts/turnover.png", s.handleTurnoverChart)
	mux.HandleFunc("/api/charts/sparkline/", s.handleSparklineChart)
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
