package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// syncResponse is the body of POST /api/kite/sync.
type syncResponse struct {
	Success        bool       `json:"success"`
	FetchedAt      *time.Time `json:"fetchedAt,omitempty"`
	ReauthRequired bool       `json:"reauthRequired,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// handleKiteLogin redirects the browser to the Kite login page for one
// account, defaulting to the first configured account.
func (s *Server) handleKiteLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	accountID := strings.TrimSpace(r.URL.Query().Get("account"))
	if accountID == "" {
		ids := s.app.Config.AccountIDs()
		if len(ids) == 0 {
			WriteError(w, http.StatusInternalServerError, "No Kite accounts configured.")
			return
		}
		accountID = ids[0]
	}

	state, err := s.state.Issue(accountID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue OAuth state")
		WriteError(w, http.StatusInternalServerError, "Failed to start Kite login.")
		return
	}

	loginURL, err := s.app.SessionService.LoginURL(accountID, state)
	if err != nil {
		if errors.Is(err, models.ErrUnknownAccount) {
			WriteError(w, http.StatusNotFound, "Unknown Kite account: "+accountID)
			return
		}
		s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to build Kite login URL")
		WriteError(w, http.StatusInternalServerError, "Failed to start Kite login.")
		return
	}

	s.setStateCookie(w, state)
	noStore(w)
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// handleKiteCallback completes the login started by handleKiteLogin.
func (s *Server) handleKiteCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	requestToken := query.Get("request_token")
	if requestToken == "" {
		WriteError(w, http.StatusBadRequest, "Missing request_token from Kite.")
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		WriteError(w, http.StatusBadRequest, "OAuth state cookie missing.")
		return
	}
	if state := query.Get("state"); state != "" && state != cookie.Value {
		s.clearStateCookie(w)
		WriteError(w, http.StatusBadRequest, "Invalid OAuth state.")
		return
	}

	accountID, err := s.state.Verify(cookie.Value)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected Kite callback")
		s.clearStateCookie(w)
		WriteError(w, http.StatusBadRequest, "Invalid OAuth state.")
		return
	}

	// The state is single use whatever the outcome.
	s.clearStateCookie(w)

	if _, err := s.app.SessionService.CompleteLogin(r.Context(), accountID, requestToken); err != nil {
		s.logger.Error().Err(err).Str("account", accountID).Msg("Kite callback failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.Redirect(w, r, strings.TrimRight(s.app.Config.AppURL, "/")+"/", http.StatusFound)
}

// handleKiteSync syncs one account on demand. The account comes from the
// query string or a JSON body of the form {"account": "<id>"}.
func (s *Server) handleKiteSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	noStore(w)

	accountID := strings.TrimSpace(r.URL.Query().Get("account"))
	if accountID == "" {
		var body struct {
			Account string `json:"account"`
		}
		if !DecodeOptionalJSON(w, r, &body) {
			return
		}
		accountID = strings.TrimSpace(body.Account)
	}
	if accountID == "" {
		WriteError(w, http.StatusBadRequest, "Missing account parameter")
		return
	}

	result, err := s.app.SyncService.TrySyncAccount(r.Context(), accountID)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, syncResponse{Success: true, FetchedAt: &result.FetchedAt})
	case errors.Is(err, models.ErrUnknownAccount):
		WriteJSON(w, http.StatusNotFound, syncResponse{Message: syncMessage(err)})
	case models.IsAuthRequired(err):
		WriteJSON(w, http.StatusUnauthorized, syncResponse{ReauthRequired: true, Message: err.Error()})
	default:
		s.logger.Error().Err(err).Str("account", accountID).Msg("Manual sync failed")
		WriteJSON(w, http.StatusInternalServerError, syncResponse{Message: syncMessage(err)})
	}
}

// syncMessage reports the underlying cause of a sync failure without the
// account prefix added by SyncError.
func syncMessage(err error) string {
	var syncErr *models.SyncError
	if errors.As(err, &syncErr) && syncErr.Err != nil {
		return syncErr.Err.Error()
	}
	return err.Error()
}
