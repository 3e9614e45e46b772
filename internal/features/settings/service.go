package settings

import (
	"context"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/features/audit"
)

type SettingsService interface {
	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, s *Settings) error
}

type SettingsServiceImpl struct {
	repo         SettingsRepository
	auditService audit.AuditService
}

func NewSettingsService(repo SettingsRepository, auditService audit.AuditService) SettingsService {
	return &SettingsServiceImpl{
		repo:         repo,
		auditService: auditService,
	}
}

func (s *SettingsServiceImpl) GetSettings(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsServiceImpl) UpdateSettings(ctx context.Context, updated *Settings) error {
	old, _ := s.repo.Get(ctx)

	if err := s.repo.Upsert(ctx, updated); err != nil {
		return err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionSettings, "pool_settings", "singleton", map[string]common_models.Change{
		"settings": {Old: old, New: updated},
	})
	return nil
}
