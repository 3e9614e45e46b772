package health

import (
	"context"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/config"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/events"
	"voicepool/internal/metrics"
	"voicepool/internal/voiceplatform"

	"go.uber.org/zap"
)

// CheckResult is one credential's probe outcome.
type CheckResult struct {
	CredentialID string                  `json:"credential_id"`
	Previous     credential.HealthStatus `json:"previous"`
	Current      credential.HealthStatus `json:"current"`
	Changed      bool                    `json:"changed"`
	Message      string                  `json:"message,omitempty"`
}

type HealthService interface {
	// PerformHealthChecks probes every active credential and records the
	// outcome. Probing only observes: an unhealthy credential stops being
	// selectable but nothing already assigned to it is moved.
	PerformHealthChecks(ctx context.Context) ([]CheckResult, error)
}

type HealthServiceImpl struct {
	credRepo     credential.CredentialRepository
	platform     voiceplatform.Client
	auditService audit.AuditService
	hub          *events.Hub
	metrics      *metrics.Metrics
	logger       *zap.Logger
	probeTimeout time.Duration
}

func NewHealthService(
	cfg *config.Config,
	credRepo credential.CredentialRepository,
	platform voiceplatform.Client,
	auditService audit.AuditService,
	hub *events.Hub,
	m *metrics.Metrics,
	logger *zap.Logger,
) HealthService {
	return &HealthServiceImpl{
		credRepo:     credRepo,
		platform:     platform,
		auditService: auditService,
		hub:          hub,
		metrics:      m,
		logger:       logger,
		probeTimeout: cfg.ProbeTimeout,
	}
}

func (s *HealthServiceImpl) PerformHealthChecks(ctx context.Context) ([]CheckResult, error) {
	creds, err := s.credRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]CheckResult, 0, len(creds))
	for i := range creds {
		cred := &creds[i]
		result := s.probeOne(ctx, cred)
		results = append(results, result)

		if result.Changed {
			s.hub.Broadcast(events.EventHealthChanged, result)
			s.auditService.LogChange(ctx, common_models.AuditActionHealthCheck, "credentials", cred.CredentialID, map[string]common_models.Change{
				"health_status": {Old: result.Previous, New: result.Current},
			})
		}
	}

	return results, nil
}

func (s *HealthServiceImpl) probeOne(ctx context.Context, cred *credential.Credential) CheckResult {
	result := CheckResult{
		CredentialID: cred.CredentialID,
		Previous:     cred.HealthStatus,
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	probe, err := s.platform.ProbeCapability(probeCtx, cred.Secret)
	cancel()

	status := credential.HealthHealthy
	switch {
	case err != nil:
		status = credential.HealthUnreachable
		result.Message = err.Error()
	case probe.Degraded:
		status = credential.HealthDegraded
		result.Message = probe.Message
	case !probe.OK:
		status = credential.HealthUnreachable
		result.Message = probe.Message
	}

	result.Current = status
	result.Changed = status != cred.HealthStatus
	s.metrics.HealthProbesTotal.WithLabelValues(string(status)).Inc()

	if err := s.credRepo.UpdateHealth(ctx, cred.CredentialID, status, time.Now()); err != nil {
		s.logger.Error("failed to record health probe",
			zap.String("credential_id", cred.CredentialID),
			zap.Error(err))
		return result
	}

	if result.Changed {
		s.logger.Warn("credential health changed",
			zap.String("credential_id", cred.CredentialID),
			zap.String("previous", string(result.Previous)),
			zap.String("current", string(status)),
			zap.String("message", result.Message))
	}

	return result
}
