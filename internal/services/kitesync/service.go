// Package kitesync pulls brokerage accounts into the snapshot store and keeps
// per-account sync status.
package kitesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/holdings"
)

// Service implements SyncService
type Service struct {
	config      *common.Config
	storage     interfaces.StorageManager
	kite        interfaces.KiteClient
	credentials interfaces.CredentialStore
	metrics     *metrics.Metrics
	logger      *common.Logger
	now         func() time.Time // injectable clock for testing
}

var _ interfaces.SyncService = (*Service)(nil)

// NewService creates a new sync service
func NewService(
	config *common.Config,
	storage interfaces.StorageManager,
	kite interfaces.KiteClient,
	credentials interfaces.CredentialStore,
	logger *common.Logger,
) *Service {
	return &Service{
		config:      config,
		storage:     storage,
		kite:        kite,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMetrics enables sync metrics
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *Service) account(accountID string) (common.KiteAccount, error) {
	account, ok := s.config.Account(accountID)
	if !ok {
		return common.KiteAccount{}, fmt.Errorf("%w %q", models.ErrUnknownAccount, accountID)
	}
	return account, nil
}

// FetchAccount fetches and normalizes one account without persisting it
func (s *Service) FetchAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error) {
	account, err := s.account(accountID)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, account)
}

func (s *Service) fetch(ctx context.Context, account common.KiteAccount) (*models.AccountPortfolio, error) {
	token, err := s.credentials.Get(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token for %s: %w", account.Label, err)
	}
	if token == "" {
		return nil, &models.AuthRequiredError{
			AccountID: account.ID,
			Message:   fmt.Sprintf("Kite access token missing for %s.", account.Label),
		}
	}

	rawHoldings, err := s.kite.GetHoldings(ctx, account.APIKey, token)
	if err != nil {
		return nil, accountError(account, "/portfolio/holdings", err)
	}

	rawPositions, err := s.kite.GetPositions(ctx, account.APIKey, token)
	if err != nil {
		return nil, accountError(account, "/portfolio/positions", err)
	}

	var net []models.KitePosition
	if rawPositions != nil {
		net = rawPositions.Net
	}

	hs, ps, err := holdings.NormalizeAccount(rawHoldings, net, account.ID, account.Label)
	if err != nil {
		return nil, err
	}

	return &models.AccountPortfolio{
		AccountID:    account.ID,
		AccountLabel: account.Label,
		Holdings:     hs,
		Positions:    ps,
		FetchedAt:    s.now().UTC(),
	}, nil
}

// accountError attaches the account to an auth error, or wraps any other error
// with the account label and endpoint.
func accountError(account common.KiteAccount, path string, err error) error {
	var authErr *models.AuthRequiredError
	if errors.As(err, &authErr) {
		return &models.AuthRequiredError{AccountID: account.ID, Message: authErr.Message}
	}
	return fmt.Errorf("Kite API error (%s %s): %w", account.Label, path, err)
}

// SyncAccount refreshes the account's snapshot. Failures are written to the
// sync status before the error is returned; a failure to write the status is
// logged and never replaces the original error.
func (s *Service) SyncAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error) {
	account, err := s.account(accountID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	s.logger.Info().Str("account", accountID).Msg("Syncing Kite account")

	portfolio, err := s.fetch(ctx, account)
	if err == nil {
		err = s.storage.SnapshotStore().UpsertSnapshot(ctx, &models.Snapshot{
			AccountID: accountID,
			Holdings:  portfolio.Holdings,
			Positions: portfolio.Positions,
			FetchedAt: portfolio.FetchedAt,
		})
		if err != nil {
			err = fmt.Errorf("failed to save snapshot for %s: %w", account.Label, err)
		}
	}

	finished := s.now()
	if err != nil {
		outcome := metrics.OutcomeError
		if models.IsAuthRequired(err) {
			outcome = metrics.OutcomeAuthRequired
		}
		s.recordFailure(ctx, accountID, err, finished)
		s.metrics.ObserveSync(accountID, outcome, finished.Sub(start), finished)
		s.logger.Warn().Err(err).Str("account", accountID).Str("outcome", outcome).Msg("Kite sync failed")
		return nil, err
	}

	s.recordSuccess(ctx, accountID, finished)
	s.metrics.ObserveSync(accountID, metrics.OutcomeSuccess, finished.Sub(start), finished)
	s.logger.Info().
		Str("account", accountID).
		Int("holdings", len(portfolio.Holdings)).
		Int("positions", len(portfolio.Positions)).
		Dur("elapsed", finished.Sub(start)).
		Msg("Kite sync complete")

	lastSync := portfolio.FetchedAt
	portfolio.LastSyncedAt = &lastSync
	return portfolio, nil
}

func (s *Service) recordSuccess(ctx context.Context, accountID string, at time.Time) {
	at = at.UTC()
	update := models.SyncStatusUpdate{LastSyncAt: &at}
	if err := s.storage.SyncStatusStore().UpsertSyncStatus(context.WithoutCancel(ctx), accountID, update); err != nil {
		s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to record sync success")
	}
}

func (s *Service) recordFailure(ctx context.Context, accountID string, syncErr error, at time.Time) {
	at = at.UTC()
	msg := syncErr.Error()
	update := models.SyncStatusUpdate{LastError: &msg, LastErrorAt: &at}
	if err := s.storage.SyncStatusStore().UpsertSyncStatus(context.WithoutCancel(ctx), accountID, update); err != nil {
		s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to record sync failure")
	}
}

// TrySyncAccount runs SyncAccount and wraps every error except
// *models.AuthRequiredError in *models.SyncError.
func (s *Service) TrySyncAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error) {
	portfolio, err := s.SyncAccount(ctx, accountID)
	if err == nil {
		return portfolio, nil
	}
	if models.IsAuthRequired(err) {
		return nil, err
	}
	return nil, &models.SyncError{AccountID: accountID, Err: err}
}

// SyncAll syncs every configured account in configuration order. The result
// holds an entry for each account that failed.
func (s *Service) SyncAll(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, id := range s.config.AccountIDs() {
		if ctx.Err() != nil {
			failures[id] = ctx.Err()
			continue
		}
		if _, err := s.TrySyncAccount(ctx, id); err != nil {
			failures[id] = err
		}
	}
	return failures
}
