// Package session drives the Kite Connect login flow for configured accounts.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// CallbackPath is where Kite redirects after login.
const CallbackPath = "/api/kite/callback"

// Service implements SessionService
type Service struct {
	config      *common.Config
	kite        interfaces.KiteClient
	credentials interfaces.CredentialStore
	sync        interfaces.SyncService
	logger      *common.Logger
}

var _ interfaces.SessionService = (*Service)(nil)

// NewService creates a new session service
func NewService(
	config *common.Config,
	kite interfaces.KiteClient,
	credentials interfaces.CredentialStore,
	sync interfaces.SyncService,
	logger *common.Logger,
) *Service {
	return &Service{
		config:      config,
		kite:        kite,
		credentials: credentials,
		sync:        sync,
		logger:      logger,
	}
}

// RedirectURL is the callback URL registered with Kite.
func (s *Service) RedirectURL() string {
	return strings.TrimRight(s.config.AppURL, "/") + CallbackPath
}

// LoginURL builds the Kite login URL for an account. The state is passed
// through untouched and comes back on the callback.
func (s *Service) LoginURL(accountID, state string) (string, error) {
	account, ok := s.config.Account(accountID)
	if !ok {
		return "", fmt.Errorf("%w %q", models.ErrUnknownAccount, accountID)
	}

	u, err := url.Parse(s.config.Kite.LoginURL)
	if err != nil {
		return "", fmt.Errorf("invalid kite login url: %w", err)
	}

	q := u.Query()
	q.Set("api_key", account.APIKey)
	q.Set("v", "3")
	if state != "" {
		q.Set("state", state)
	}
	q.Set("redirect_uri", s.RedirectURL())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// CompleteLogin exchanges the request token, stores the resulting access
// token and runs a first sync. A failed sync after a successful exchange is
// returned as-is; the token stays stored.
func (s *Service) CompleteLogin(ctx context.Context, accountID, requestToken string) (*models.AccountPortfolio, error) {
	account, ok := s.config.Account(accountID)
	if !ok {
		return nil, fmt.Errorf("%w %q", models.ErrUnknownAccount, accountID)
	}
	if requestToken == "" {
		return nil, errors.New("missing request token")
	}

	session, err := s.kite.ExchangeRequestToken(ctx, account.APIKey, account.APISecret, requestToken)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange request token for %s: %w", account.Label, err)
	}
	if session == nil || session.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange request token for %s: %w", account.Label, models.ErrMalformedResponse)
	}

	if err := s.credentials.Set(ctx, account.ID, session.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to store access token for %s: %w", account.Label, err)
	}

	s.logger.Info().
		Str("account", account.ID).
		Str("kite_user", session.UserID).
		Msg("Kite session established")

	return s.sync.SyncAccount(ctx, account.ID)
}
