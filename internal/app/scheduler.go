package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// syncRunTimeout bounds one scheduled pass over all accounts.
const syncRunTimeout = 5 * time.Minute

// Scheduler runs SyncAll on a cron schedule. A run still in progress when
// the next one is due causes that next run to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	sync   interfaces.SyncService
	logger *common.Logger
}

// NewScheduler creates a scheduler using standard five-field cron
// expressions (or descriptors such as "@every 15m").
func NewScheduler(sync interfaces.SyncService, logger *common.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sync:   sync,
		logger: logger,
	}
}

// Add registers the sync job.
func (s *Scheduler) Add(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return err
	}
	s.logger.Info().Str("schedule", schedule).Msg("Scheduled sync registered")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunOnce syncs every account. Accounts that need a new login are logged
// and skipped; they are retried on the next run.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), syncRunTimeout)
	defer cancel()

	start := time.Now()
	failures := s.sync.SyncAll(ctx)

	reauth := 0
	for id, err := range failures {
		if models.IsAuthRequired(err) {
			reauth++
			s.logger.Warn().Str("account", id).Msg("Scheduled sync: login required, skipped")
			continue
		}
		s.logger.Error().Err(err).Str("account", id).Msg("Scheduled sync: failed")
	}

	s.logger.Info().
		Int("failed", len(failures)-reauth).
		Int("reauth_required", reauth).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled sync: complete")
}
