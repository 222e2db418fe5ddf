package server

import (
	"net/http"

	"github.com/bobmcallan/folio/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.Handle("/metrics", s.app.Metrics.Handler())

	// Portfolio
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/portfolio/live", s.handlePortfolioLive)
	mux.HandleFunc("/api/sync/status", s.handleSyncStatus)

	// Kite
	mux.HandleFunc("/api/kite/login", s.handleKiteLogin)
	mux.HandleFunc("/api/kite/callback", s.handleKiteCallback)
	mux.HandleFunc("/api/kite/sync", s.handleKiteSync)

	// Market
	mux.HandleFunc("/api/indicesData", s.handleIndices)
	mux.HandleFunc("/api/marketMovers", s.handleMarketMovers)
	mux.HandleFunc("/api/F-marketData", s.handleGlobalMarkets)
	mux.HandleFunc("/api/searchStocks", s.handleSearchStocks)
	mux.HandleFunc("/api/stockData", s.handleManualHoldings)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.CurrentVersion())
}
