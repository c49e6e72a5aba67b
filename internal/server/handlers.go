package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/services/conviction"
	"github.com/buzzindex/buzzboard/internal/services/turnover"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	latest, _ := s.app.Index.LatestDate()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"environment":  s.app.Config.Environment,
		"uptime":       time.Since(s.app.StartupTime).Round(time.Second).String(),
		"rebalances":   len(s.app.Index.Dates()),
		"latest_rebal": latest.Format("2006-01-02"),
		"index_symbol": s.app.Config.IndexSymbol,
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"full":    common.GetFullVersion(),
	})
}

// handleHoldings handles GET /api/holdings?q=filter.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	holdings, err := s.app.Views.Holdings(r.URL.Query().Get("q"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to load holdings: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, holdings)
}

// handleSnapshot handles GET /api/snapshot/{ticker}?timeframe=6mo.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/snapshot/", "")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	view, err := s.app.Views.Snapshot(r.Context(), ticker, r.URL.Query().Get("timeframe"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Unknown ticker: "+ticker)
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to build snapshot: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleIndexPerformance handles GET /api/index/performance?timeframe=1y&compare=SPY,QQQ.
func (s *Server) handleIndexPerformance(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var compare []string
	if raw := r.URL.Query().Get("compare"); raw != "" {
		compare = strings.Split(raw, ",")
	}

	view, err := s.app.Views.IndexPerformance(r.Context(), r.URL.Query().Get("timeframe"), compare)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "Index series unavailable: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleConviction handles GET /api/conviction.
func (s *Server) handleConviction(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.Views.Conviction())
}

// handleTurnover handles GET /api/turnover.
func (s *Server) handleTurnover(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	view, err := s.app.Views.Turnover()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to build turnover view: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleHeatmap handles GET /api/heatmap.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	view, err := s.app.Views.Heatmap(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to build heatmap: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleTurnoverChart handles GET /api/charts/turnover.png.
func (s *Server) handleTurnoverChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	series := s.app.Turnover.MonthlySeries()
	stats := s.app.Turnover.Stats(turnover.WindowAll)

	png, err := turnover.RenderChart(series, stats)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Cannot render chart: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleSparklineChart handles GET /api/charts/sparkline/{ticker}.png.
func (s *Server) handleSparklineChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/charts/sparkline/", ".png")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	scores := s.app.Conviction.Sparkline(ticker, conviction.DefaultSparklineLen)
	if len(scores) == 0 {
		WriteError(w, http.StatusNotFound, "Unknown ticker: "+ticker)
		return
	}

	png, err := conviction.RenderSparkline(ticker, scores)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Cannot render sparkline: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
