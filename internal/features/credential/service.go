package credential

import (
	"context"
	"errors"
	"fmt"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/features/audit"

	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("credential not found")
	// ErrNotDrained rejects deletion of a credential that still carries
	// resources; the operator must migrate them away first.
	ErrNotDrained = errors.New("credential still has assigned resources")
)

// AssignmentCounter reports how many resources are currently assigned to a
// credential. Satisfied by the resource repository; kept as a local
// interface to avoid a package cycle.
type AssignmentCounter interface {
	CountByCredential(ctx context.Context, credentialID string) (int64, error)
}

type CredentialService interface {
	CreateCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, credentialID string) (*Credential, error)
	ListCredentials(ctx context.Context, filter map[string]interface{}) ([]Credential, error)
	UpdateCredential(ctx context.Context, credentialID string, updates map[string]interface{}) error
	// Deactivate stops new assignments. Existing resources stay in place.
	Deactivate(ctx context.Context, credentialID string) error
	// DeleteCredential removes a fully drained credential; it fails with
	// ErrNotDrained while any resource is still assigned to it.
	DeleteCredential(ctx context.Context, credentialID string) error
}

type CredentialServiceImpl struct {
	repo         CredentialRepository
	assignments  AssignmentCounter
	auditService audit.AuditService
	logger       *zap.Logger
}

func NewCredentialService(
	repo CredentialRepository,
	assignments AssignmentCounter,
	auditService audit.AuditService,
	logger *zap.Logger,
) CredentialService {
	return &CredentialServiceImpl{
		repo:         repo,
		assignments:  assignments,
		auditService: auditService,
		logger:       logger,
	}
}

func (s *CredentialServiceImpl) CreateCredential(ctx context.Context, cred *Credential) error {
	if cred.CredentialID == "" {
		return errors.New("credential_id is required")
	}
	if cred.Secret == "" {
		return errors.New("secret is required")
	}
	if cred.MaxResourceThreshold < 1 {
		return fmt.Errorf("max_resource_threshold must be >= 1, got %d", cred.MaxResourceThreshold)
	}

	cred.IsActive = true
	cred.HealthStatus = HealthUnknown
	cred.AssignedAgentCount = 0
	cred.AssignedUserCount = 0
	cred.OverCapacity = false

	if err := s.repo.Create(ctx, cred); err != nil {
		return err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionCreate, "credentials", cred.CredentialID, map[string]common_models.Change{
		"credential": {New: redacted(cred)},
	})
	s.logger.Info("credential created",
		zap.String("credential_id", cred.CredentialID),
		zap.Int("max_resource_threshold", cred.MaxResourceThreshold))

	return nil
}

func (s *CredentialServiceImpl) GetCredential(ctx context.Context, credentialID string) (*Credential, error) {
	cred, err := s.repo.GetByCredentialID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}
	return cred, nil
}

func (s *CredentialServiceImpl) ListCredentials(ctx context.Context, filter map[string]interface{}) ([]Credential, error) {
	return s.repo.List(ctx, filter)
}

func (s *CredentialServiceImpl) UpdateCredential(ctx context.Context, credentialID string, updates map[string]interface{}) error {
	old, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return err
	}

	// Only operator-tunable fields may change through this path. Counters
	// and health belong to the ledger and prober.
	allowed := map[string]bool{"label": true, "max_resource_threshold": true, "is_active": true}
	filtered := map[string]interface{}{}
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	if threshold, ok := filtered["max_resource_threshold"]; ok {
		if n, ok := toInt(threshold); !ok || n < 1 {
			return fmt.Errorf("max_resource_threshold must be >= 1")
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	if err := s.repo.Update(ctx, credentialID, filtered); err != nil {
		return err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionUpdate, "credentials", credentialID, map[string]common_models.Change{
		"credential": {Old: redacted(old), New: filtered},
	})
	return nil
}

func (s *CredentialServiceImpl) Deactivate(ctx context.Context, credentialID string) error {
	old, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return err
	}

	if err := s.repo.Update(ctx, credentialID, map[string]interface{}{"is_active": false}); err != nil {
		return err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionDeactivate, "credentials", credentialID, map[string]common_models.Change{
		"is_active": {Old: old.IsActive, New: false},
	})
	s.logger.Info("credential deactivated", zap.String("credential_id", credentialID))
	return nil
}

func (s *CredentialServiceImpl) DeleteCredential(ctx context.Context, credentialID string) error {
	old, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return err
	}

	assigned, err := s.assignments.CountByCredential(ctx, credentialID)
	if err != nil {
		return err
	}
	if assigned > 0 || old.AssignedAgentCount > 0 {
		return fmt.Errorf("%w: %d resources still assigned", ErrNotDrained, assigned)
	}

	if err := s.repo.Delete(ctx, credentialID); err != nil {
		return err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionDelete, "credentials", credentialID, map[string]common_models.Change{
		"credential": {Old: redacted(old), New: "DELETED"},
	})
	s.logger.Info("credential deleted", zap.String("credential_id", credentialID))
	return nil
}

// redacted strips the secret before a credential lands in an audit trail.
func redacted(c *Credential) map[string]interface{} {
	if c == nil {
		return nil
	}
	return map[string]interface{}{
		"credential_id":          c.CredentialID,
		"label":                  c.Label,
		"is_active":              c.IsActive,
		"health_status":          c.HealthStatus,
		"max_resource_threshold": c.MaxResourceThreshold,
		"assigned_agent_count":   c.AssignedAgentCount,
		"assigned_user_count":    c.AssignedUserCount,
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
