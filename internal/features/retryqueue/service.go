package retryqueue

import (
	"context"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/migration"
	"voicepool/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueueStatus describes the replayable backlog. Pending counts attempts
// that are mid-flight, Failed counts attempts still under the retry
// budget, Exhausted counts attempts that burned through it.
type QueueStatus struct {
	Depth        int64      `json:"depth"`
	Pending      int64      `json:"pending"`
	Failed       int64      `json:"failed"`
	Succeeded    int64      `json:"succeeded"`
	Superseded   int64      `json:"superseded"`
	Exhausted    int64      `json:"exhausted"`
	OldestQueued *time.Time `json:"oldest_queued,omitempty"`
	MaxAttempts  int        `json:"max_attempts"`
}

type RetryQueueService interface {
	Status(ctx context.Context) (*QueueStatus, error)
	// ProcessQueue replays every queued attempt once, sequentially and
	// oldest first. A second call right after a fully successful pass
	// finds an empty queue and does nothing.
	ProcessQueue(ctx context.Context) (*common_models.BatchSummary, error)
}

type RetryQueueServiceImpl struct {
	attemptRepo      migration.AttemptRepository
	migrationService migration.MigrationService
	auditService     audit.AuditService
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

func NewRetryQueueService(
	attemptRepo migration.AttemptRepository,
	migrationService migration.MigrationService,
	auditService audit.AuditService,
	m *metrics.Metrics,
	logger *zap.Logger,
) RetryQueueService {
	return &RetryQueueServiceImpl{
		attemptRepo:      attemptRepo,
		migrationService: migrationService,
		auditService:     auditService,
		metrics:          m,
		logger:           logger,
	}
}

func (s *RetryQueueServiceImpl) Status(ctx context.Context) (*QueueStatus, error) {
	maxAttempts := s.migrationService.MaxAttempts()

	counts, err := s.attemptRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	replayable, err := s.attemptRepo.ListReplayable(ctx, maxAttempts, 0)
	if err != nil {
		return nil, err
	}

	oldest, err := s.attemptRepo.OldestReplayable(ctx, maxAttempts)
	if err != nil {
		return nil, err
	}

	depth := int64(len(replayable))
	s.metrics.RetryQueueDepth.Set(float64(depth))

	return &QueueStatus{
		Depth:        depth,
		Pending:      counts[string(migration.StatusPending)],
		Failed:       counts[string(migration.StatusFailed)],
		Succeeded:    counts[string(migration.StatusSucceeded)],
		Superseded:   counts[string(migration.StatusSuperseded)],
		Exhausted:    counts[string(migration.StatusFailed)] - depth,
		OldestQueued: oldest,
		MaxAttempts:  maxAttempts,
	}, nil
}

func (s *RetryQueueServiceImpl) ProcessQueue(ctx context.Context) (*common_models.BatchSummary, error) {
	maxAttempts := s.migrationService.MaxAttempts()

	queued, err := s.attemptRepo.ListReplayable(ctx, maxAttempts, 0)
	if err != nil {
		return nil, err
	}

	summary := &common_models.BatchSummary{
		BatchID: uuid.NewString(),
		Total:   len(queued),
		Errors:  []common_models.ItemError{},
	}

	// Sequential on purpose: replays are rare and ordering by age keeps
	// the oldest failures from starving behind fresh ones.
	for i := range queued {
		attempt := queued[i]
		result, err := s.migrationService.ReplayAttempt(ctx, &attempt)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, common_models.ItemError{
				ResourceID: attempt.ResourceID,
				Reason:     err.Error(),
			})
			continue
		}
		if result.Migrated || result.NoOp {
			summary.Succeeded++
		}
	}

	s.refreshDepth(ctx, maxAttempts)

	if summary.Total > 0 {
		s.auditService.LogChange(ctx, common_models.AuditActionRetryQueue, "migration_attempts", summary.BatchID, map[string]common_models.Change{
			"replay": {New: summary},
		})
		s.logger.Info("retry queue processed",
			zap.String("batch_id", summary.BatchID),
			zap.Int("total", summary.Total),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed))
	}

	return summary, nil
}

func (s *RetryQueueServiceImpl) refreshDepth(ctx context.Context, maxAttempts int) {
	remaining, err := s.attemptRepo.ListReplayable(ctx, maxAttempts, 0)
	if err != nil {
		s.logger.Warn("failed to refresh retry queue depth", zap.Error(err))
		return
	}
	s.metrics.RetryQueueDepth.Set(float64(len(remaining)))
}
