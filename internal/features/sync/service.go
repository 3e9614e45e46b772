package sync

import (
	"context"
	"fmt"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/config"
	"voicepool/internal/connectors"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/resource"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SyncService interface {
	// SyncFromPanel pulls the panel's resources and connections into the
	// local store. Existing rows are left alone; the panel never
	// overwrites local credential assignments.
	SyncFromPanel(ctx context.Context) (*SyncRun, error)
	ListRecentRuns(ctx context.Context, limit int64) ([]SyncRun, error)
}

type SyncServiceImpl struct {
	connector    connectors.Connector
	syncRepo     SyncRepository
	resourceRepo resource.ResourceRepository
	connRepo     resource.ConnectionRepository
	auditService audit.AuditService
	logger       *zap.Logger
	dsn          string
}

func NewSyncService(
	cfg *config.Config,
	connector connectors.Connector,
	syncRepo SyncRepository,
	resourceRepo resource.ResourceRepository,
	connRepo resource.ConnectionRepository,
	auditService audit.AuditService,
	logger *zap.Logger,
) SyncService {
	return &SyncServiceImpl{
		connector:    connector,
		syncRepo:     syncRepo,
		resourceRepo: resourceRepo,
		connRepo:     connRepo,
		auditService: auditService,
		logger:       logger,
		dsn:          cfg.PanelDBDSN,
	}
}

func (s *SyncServiceImpl) SyncFromPanel(ctx context.Context) (*SyncRun, error) {
	if s.dsn == "" {
		return nil, fmt.Errorf("panel database DSN not configured")
	}

	if err := s.connector.Connect(ctx, s.dsn); err != nil {
		return nil, err
	}
	defer s.connector.Disconnect(ctx)

	snapshot, err := s.connector.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	run := &SyncRun{
		RunID:           uuid.NewString(),
		Driver:          s.connector.Driver(),
		ResourcesSeen:   len(snapshot.Resources),
		ConnectionsSeen: len(snapshot.Connections),
		StartedAt:       time.Now(),
	}

	for _, pr := range snapshot.Resources {
		kind := resource.ResourceKind(pr.Kind)
		if kind != resource.KindAgent && kind != resource.KindPhoneNumber && kind != resource.KindVoice {
			s.logger.Warn("skipping panel resource with unknown kind",
				zap.String("resource_id", pr.ResourceID),
				zap.String("kind", pr.Kind))
			run.Skipped++
			continue
		}

		existing, err := s.resourceRepo.GetByResourceID(ctx, pr.ResourceID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			run.Skipped++
			continue
		}

		// Imported resources start unassigned; the allocator places them.
		err = s.resourceRepo.Create(ctx, &resource.Resource{
			ResourceID: pr.ResourceID,
			Kind:       kind,
			Name:       pr.Name,
			OwnerID:    pr.OwnerID,
		})
		if err != nil {
			return nil, err
		}
		run.ResourcesImported++
	}

	for _, pc := range snapshot.Connections {
		existing, err := s.connRepo.GetByPhoneNumber(ctx, pc.PhoneNumberID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			run.Skipped++
			continue
		}

		err = s.connRepo.Create(ctx, &resource.Connection{
			PhoneNumberID: pc.PhoneNumberID,
			AgentID:       pc.AgentID,
		})
		if err != nil {
			return nil, err
		}
		run.ConnectionsCreated++
	}

	run.FinishedAt = time.Now()
	if err := s.syncRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionSync, "sync_runs", run.RunID, map[string]common_models.Change{
		"run": {New: run},
	})
	s.logger.Info("panel sync completed",
		zap.String("run_id", run.RunID),
		zap.Int("resources_imported", run.ResourcesImported),
		zap.Int("connections_created", run.ConnectionsCreated),
		zap.Int("skipped", run.Skipped))

	return run, nil
}

func (s *SyncServiceImpl) ListRecentRuns(ctx context.Context, limit int64) ([]SyncRun, error) {
	return s.syncRepo.ListRecent(ctx, limit)
}
