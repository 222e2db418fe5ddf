package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// handlePortfolio serves the combined view built from stored snapshots, or
// one account's stored view when ?account= is given.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	noStore(w)

	if accountID := strings.TrimSpace(r.URL.Query().Get("account")); accountID != "" {
		account, err := s.app.PortfolioService.GetAccount(r.Context(), accountID)
		switch {
		case err == nil:
			WriteJSON(w, http.StatusOK, account)
		case errors.Is(err, models.ErrUnknownAccount):
			WriteError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to load account")
			WriteError(w, http.StatusInternalServerError, "Failed to load portfolio: "+err.Error())
		}
		return
	}

	view, err := s.app.PortfolioService.GetPortfolio(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to load portfolio: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handlePortfolioLive fetches every account from Kite without persisting.
func (s *Server) handlePortfolioLive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	noStore(w)

	view, err := s.app.PortfolioService.LivePortfolio(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch live portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch live portfolio: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	noStore(w)

	statuses, err := s.app.PortfolioService.SyncStatuses(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load sync status")
		WriteError(w, http.StatusInternalServerError, "Failed to load sync status: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": statuses})
}
