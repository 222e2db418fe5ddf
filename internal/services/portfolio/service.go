// Package portfolio builds the dashboard portfolio views
package portfolio

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/holdings"
)

// Service implements PortfolioService
type Service struct {
	config  *common.Config
	storage interfaces.StorageManager
	sync    interfaces.SyncService
	quotes  interfaces.QuoteService
	logger  *common.Logger
}

var _ interfaces.PortfolioService = (*Service)(nil)

// NewService creates a new portfolio service. quotes may be nil, in which
// case holdings are served at their stored prices.
func NewService(
	config *common.Config,
	storage interfaces.StorageManager,
	sync interfaces.SyncService,
	quotes interfaces.QuoteService,
	logger *common.Logger,
) *Service {
	return &Service{
		config:  config,
		storage: storage,
		sync:    sync,
		quotes:  quotes,
		logger:  logger,
	}
}

func (s *Service) accountMetadata() []models.AccountInfo {
	out := make([]models.AccountInfo, 0, len(s.config.Kite.Accounts))
	for _, a := range s.config.Kite.Accounts {
		out = append(out, models.AccountInfo{ID: a.ID, Label: a.Label})
	}
	return out
}

// GetPortfolio builds the view from stored snapshots. Accounts that have
// never synced are reported with NeedsSync set and no holdings.
func (s *Service) GetPortfolio(ctx context.Context) (*models.PortfolioView, error) {
	statuses, err := s.storage.SyncStatusStore().ListSyncStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	statusByAccount := make(map[string]*models.SyncStatus, len(statuses))
	for _, st := range statuses {
		statusByAccount[st.AccountID] = st
	}

	snapshots, err := s.storage.SnapshotStore().ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	snapshotByAccount := make(map[string]*models.Snapshot, len(snapshots))
	for _, snap := range snapshots {
		snapshotByAccount[snap.AccountID] = snap
	}

	accounts := make([]models.AccountPortfolio, 0, len(s.config.Kite.Accounts))
	for _, account := range s.config.Kite.Accounts {
		accounts = append(accounts, s.accountView(ctx, account, snapshotByAccount[account.ID], statusByAccount[account.ID]))
	}

	return &models.PortfolioView{
		Combined:        holdings.Combine(accounts),
		Accounts:        accounts,
		AccountMetadata: s.accountMetadata(),
		Errors:          []models.AccountError{},
	}, nil
}

// GetAccount builds the stored view of a single account.
func (s *Service) GetAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error) {
	account, ok := s.config.Account(accountID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownAccount, accountID)
	}

	snapshot, err := s.storage.SnapshotStore().GetSnapshot(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", account.Label, err)
	}
	status, err := s.storage.SyncStatusStore().GetSyncStatus(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status for %s: %w", account.Label, err)
	}

	view := s.accountView(ctx, account, snapshot, status)
	return &view, nil
}

// accountView labels and prices a stored snapshot. A nil snapshot yields an
// empty account flagged NeedsSync.
func (s *Service) accountView(ctx context.Context, account common.KiteAccount, snapshot *models.Snapshot, status *models.SyncStatus) models.AccountPortfolio {
	var syncError *string
	if status != nil {
		syncError = status.LastError
	}

	if snapshot == nil {
		return models.AccountPortfolio{
			AccountID:    account.ID,
			AccountLabel: account.Label,
			Holdings:     []models.Holding{},
			Positions:    []models.Position{},
			NeedsSync:    true,
			SyncError:    syncError,
		}
	}

	hs := make([]models.Holding, len(snapshot.Holdings))
	for i, h := range snapshot.Holdings {
		h.AccountID = account.ID
		h.AccountLabel = account.Label
		hs[i] = h
	}
	if s.quotes != nil {
		hs = s.quotes.Enrich(ctx, hs)
	}

	positions := snapshot.Positions
	if positions == nil {
		positions = []models.Position{}
	}

	fetchedAt := snapshot.FetchedAt
	return models.AccountPortfolio{
		AccountID:    account.ID,
		AccountLabel: account.Label,
		Holdings:     hs,
		Positions:    positions,
		FetchedAt:    fetchedAt,
		LastSyncedAt: &fetchedAt,
		SyncError:    syncError,
	}
}

// LivePortfolio fetches every account from the broker without persisting.
// Accounts are fetched concurrently; a failed account is reported in Errors
// (and in ReauthRequiredAccounts when it needs a new login) and the rest are
// still merged.
func (s *Service) LivePortfolio(ctx context.Context) (*models.PortfolioView, error) {
	configured := s.config.Kite.Accounts
	results := make([]*models.AccountPortfolio, len(configured))
	failures := make([]error, len(configured))

	g, gctx := errgroup.WithContext(ctx)
	if s.config.Sync.Concurrency > 0 {
		g.SetLimit(s.config.Sync.Concurrency)
	}
	for i, account := range configured {
		g.Go(func() error {
			p, err := s.sync.FetchAccount(gctx, account.ID)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = p
			return nil
		})
	}
	_ = g.Wait()

	view := &models.PortfolioView{
		Accounts:               []models.AccountPortfolio{},
		AccountMetadata:        s.accountMetadata(),
		ReauthRequiredAccounts: []string{},
		Errors:                 []models.AccountError{},
	}

	for i, account := range configured {
		if err := failures[i]; err != nil {
			if models.IsAuthRequired(err) {
				view.ReauthRequiredAccounts = append(view.ReauthRequiredAccounts, account.ID)
			} else {
				s.logger.Error().Err(err).Str("account", account.ID).Msg("Failed to fetch Kite data")
			}
			view.Errors = append(view.Errors, models.AccountError{AccountID: account.ID, Message: err.Error()})
			continue
		}
		view.Accounts = append(view.Accounts, *results[i])
	}

	view.Combined = holdings.Combine(view.Accounts)
	return view, nil
}

// SyncStatuses returns one status per configured account, in configuration
// order. Accounts that have never been synced get an empty status.
func (s *Service) SyncStatuses(ctx context.Context) ([]*models.SyncStatus, error) {
	stored, err := s.storage.SyncStatusStore().ListSyncStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	byAccount := make(map[string]*models.SyncStatus, len(stored))
	for _, st := range stored {
		byAccount[st.AccountID] = st
	}

	out := make([]*models.SyncStatus, 0, len(s.config.Kite.Accounts))
	for _, id := range s.config.AccountIDs() {
		if st, ok := byAccount[id]; ok {
			out = append(out, st)
			continue
		}
		out = append(out, &models.SyncStatus{AccountID: id})
	}
	return out, nil
}
