package scheduler

import (
	"context"
	"time"

	"voicepool/internal/features/health"
	"voicepool/internal/features/ledger"
	"voicepool/internal/features/migration"
	"voicepool/internal/features/retryqueue"
	"voicepool/internal/features/settings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerService owns the background cadences: health probes every
// minute, queue replay every five, counter reconciliation every fifteen,
// and an hourly drift sweep gated on runtime settings.
type SchedulerService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
}

type SchedulerServiceImpl struct {
	healthService     health.HealthService
	retryQueueService retryqueue.RetryQueueService
	ledgerService     ledger.LedgerService
	migrationService  migration.MigrationService
	settingsService   settings.SettingsService
	logger            *zap.Logger

	scheduler *cron.Cron
}

func NewSchedulerService(
	healthService health.HealthService,
	retryQueueService retryqueue.RetryQueueService,
	ledgerService ledger.LedgerService,
	migrationService migration.MigrationService,
	settingsService settings.SettingsService,
	logger *zap.Logger,
) SchedulerService {
	return &SchedulerServiceImpl{
		healthService:     healthService,
		retryQueueService: retryQueueService,
		ledgerService:     ledgerService,
		migrationService:  migrationService,
		settingsService:   settingsService,
		logger:            logger,
	}
}

func (s *SchedulerServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.scheduler = cron.New()

	jobs := []struct {
		schedule string
		name     string
		run      func(context.Context) error
	}{
		{"@every 1m", "health_probe", s.runHealthProbe},
		{"@every 5m", "queue_replay", s.runQueueReplay},
		{"@every 15m", "reconciliation", s.runReconciliation},
		{"@hourly", "drift_sweep", s.runDriftSweep},
	}

	for _, job := range jobs {
		job := job
		_, err := s.scheduler.AddFunc(job.schedule, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if err := job.run(jobCtx); err != nil {
				s.logger.Error("scheduled job failed",
					zap.String("job", job.name),
					zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
	}

	s.scheduler.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

func (s *SchedulerServiceImpl) StopScheduler() error {
	if s.scheduler != nil {
		stopCtx := s.scheduler.Stop()
		<-stopCtx.Done()
		s.logger.Info("scheduler stopped")
	}
	return nil
}

func (s *SchedulerServiceImpl) runHealthProbe(ctx context.Context) error {
	_, err := s.healthService.PerformHealthChecks(ctx)
	return err
}

func (s *SchedulerServiceImpl) runQueueReplay(ctx context.Context) error {
	summary, err := s.retryQueueService.ProcessQueue(ctx)
	if err != nil {
		return err
	}
	if summary.Total > 0 {
		s.logger.Info("queue replay pass",
			zap.Int("total", summary.Total),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed))
	}
	return nil
}

func (s *SchedulerServiceImpl) runReconciliation(ctx context.Context) error {
	return s.ledgerService.RecalculateCounts(ctx)
}

// runDriftSweep migrates mismatched phone numbers on the hour, but only
// when the operator has switched the sweep on.
func (s *SchedulerServiceImpl) runDriftSweep(ctx context.Context) error {
	cfg, err := s.settingsService.GetSettings(ctx)
	if err != nil {
		return err
	}
	if !cfg.DriftSweepEnabled {
		return nil
	}

	summary, err := s.migrationService.MigrateAllMismatched(ctx)
	if err != nil {
		return err
	}
	if summary.Total > 0 {
		s.logger.Info("drift sweep completed",
			zap.String("batch_id", summary.BatchID),
			zap.Int("total", summary.Total),
			zap.Int("failed", summary.Failed))
	}
	return nil
}
