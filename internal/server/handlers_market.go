package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// Market routes keep the paths the dashboard already calls.

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	indices, err := s.app.MarketService.Indices(r.Context())
	if err != nil {
		s.writeMarketError(w, err, "Failed to fetch indices data")
		return
	}
	publicCache(w, 60, 300)
	WriteJSON(w, http.StatusOK, indices)
}

func (s *Server) handleMarketMovers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	movers, err := s.app.MarketService.Movers(r.Context())
	if err != nil {
		s.writeMarketError(w, err, "Error fetching market data")
		return
	}
	publicCache(w, 60, 300)
	WriteJSON(w, http.StatusOK, movers)
}

func (s *Server) handleGlobalMarkets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	view, err := s.app.MarketService.GlobalMarkets(r.Context())
	if err != nil {
		s.writeMarketError(w, err, "Failed to fetch market data")
		return
	}
	publicCache(w, 300, 0)
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleSearchStocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	results, err := s.app.MarketService.Search(r.Context(), query)
	if err != nil {
		s.writeMarketError(w, err, "Failed to fetch stocks")
		return
	}
	WriteJSON(w, http.StatusOK, results)
}

// handleManualHoldings serves the hand-maintained holdings document, priced.
func (s *Server) handleManualHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	holdings, err := s.app.MarketService.ManualHoldings(r.Context())
	if err != nil {
		s.writeMarketError(w, err, "Failed to load holdings")
		return
	}
	publicCache(w, 60, 300)
	WriteJSON(w, http.StatusOK, holdings)
}

// writeMarketError maps market service errors to status codes. Unexpected
// errors are logged and reported with the fixed message.
func (s *Server) writeMarketError(w http.ResponseWriter, err error, message string) {
	noStore(w)
	switch {
	case errors.Is(err, models.ErrEmptyQuery):
		WriteError(w, http.StatusBadRequest, "Query parameter is required")
	case errors.Is(err, models.ErrNoManualHoldings):
		WriteError(w, http.StatusNotFound, "No holdings found")
	case errors.Is(err, models.ErrMarketDataUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "Market data is not configured")
	default:
		s.logger.Error().Err(err).Msg(message)
		WriteError(w, http.StatusInternalServerError, message)
	}
}
