package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/config"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/events"
	"voicepool/internal/features/ledger"
	"voicepool/internal/features/resource"
	"voicepool/internal/features/settings"
	"voicepool/internal/metrics"
	"voicepool/internal/voiceplatform"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrCapacityExhausted: the destination cannot take the resource and
	// the caller did not force. Distinct from ErrNoTargetCredential.
	ErrCapacityExhausted = errors.New("destination credential has no spare capacity")
	// ErrNoTargetCredential: the intended target cannot be determined,
	// e.g. the connected agent is unassigned. Callers must be able to tell
	// this apart from "nothing to do".
	ErrNoTargetCredential = errors.New("no target credential for migration")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrCredentialNotFound = errors.New("credential not found")
)

type MigrationService interface {
	// MigrateResource relocates one resource's remote registration onto
	// destCredentialID. Destination-first ordering: the new registration is
	// created and acknowledged before the old one is removed, so the
	// resource never exists on zero credentials.
	MigrateResource(ctx context.Context, resourceID, destCredentialID string, opts MigrateOptions) (*MigrationResult, error)
	// MigrateAllMismatched sweeps the drift report and migrates every
	// flagged phone number onto its agent's credential. Failures are
	// isolated per resource.
	MigrateAllMismatched(ctx context.Context) (*common_models.BatchSummary, error)
	// MigrateAgentPhoneNumbers moves every phone connected to the agent
	// onto the agent's credential, with the same isolation semantics.
	MigrateAgentPhoneNumbers(ctx context.Context, agentID string) (*common_models.BatchSummary, error)
	// ReplayAttempt re-runs a queued attempt with its stored destination.
	ReplayAttempt(ctx context.Context, attempt *MigrationAttempt) (*MigrationResult, error)
	MaxAttempts() int
}

type MigrationServiceImpl struct {
	attemptRepo   AttemptRepository
	credRepo      credential.CredentialRepository
	resourceRepo  resource.ResourceRepository
	connRepo      resource.ConnectionRepository
	ledgerService ledger.LedgerService
	settings      settings.SettingsService
	platform      voiceplatform.Client
	auditService  audit.AuditService
	hub           *events.Hub
	metrics       *metrics.Metrics
	logger        *zap.Logger

	callTimeout callTimeout
	workers     int
	maxAttempts int
}

type callTimeout = func(ctx context.Context) (context.Context, context.CancelFunc)

func NewMigrationService(
	cfg *config.Config,
	attemptRepo AttemptRepository,
	credRepo credential.CredentialRepository,
	resourceRepo resource.ResourceRepository,
	connRepo resource.ConnectionRepository,
	ledgerService ledger.LedgerService,
	settingsService settings.SettingsService,
	platform voiceplatform.Client,
	auditService audit.AuditService,
	hub *events.Hub,
	m *metrics.Metrics,
	logger *zap.Logger,
) MigrationService {
	timeout := cfg.CallTimeout
	return &MigrationServiceImpl{
		attemptRepo:   attemptRepo,
		credRepo:      credRepo,
		resourceRepo:  resourceRepo,
		connRepo:      connRepo,
		ledgerService: ledgerService,
		settings:      settingsService,
		platform:      platform,
		auditService:  auditService,
		hub:           hub,
		metrics:       m,
		logger:        logger,
		callTimeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, timeout)
		},
		workers:     cfg.MigrationWorkers,
		maxAttempts: cfg.MaxAttempts,
	}
}

// MaxAttempts returns the retry budget, honoring the runtime settings
// override when one is set.
func (s *MigrationServiceImpl) MaxAttempts() int {
	if s.settings != nil {
		if st, err := s.settings.GetSettings(context.Background()); err == nil && st.MaxAttemptsOverride > 0 {
			return st.MaxAttemptsOverride
		}
	}
	return s.maxAttempts
}

func (s *MigrationServiceImpl) MigrateResource(ctx context.Context, resourceID, destCredentialID string, opts MigrateOptions) (*MigrationResult, error) {
	return s.migrate(ctx, resourceID, destCredentialID, opts, nil)
}

// migrate is the single execution path. When existing is non-nil the run is
// a replay: the stored attempt is re-driven and its count advances instead
// of a new attempt being created.
func (s *MigrationServiceImpl) migrate(ctx context.Context, resourceID, destCredentialID string, opts MigrateOptions, existing *MigrationAttempt) (*MigrationResult, error) {
	if destCredentialID == "" {
		return nil, ErrNoTargetCredential
	}

	res, err := s.resourceRepo.GetByResourceID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resourceID)
	}

	result := &MigrationResult{
		ResourceID:         resourceID,
		SourceCredentialID: res.AssignedCredentialID,
		DestCredentialID:   destCredentialID,
		DryRun:             opts.DryRun,
	}

	// No-op guard: repeated identical requests change nothing. A replayed
	// attempt whose resource already landed on the destination is closed
	// out as succeeded.
	if res.AssignedCredentialID == destCredentialID {
		result.NoOp = true
		if existing != nil {
			existing.Status = StatusSucceeded
			if err := s.attemptRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	dest, err := s.credRepo.GetByCredentialID(ctx, destCredentialID)
	if err != nil {
		return nil, err
	}
	if dest == nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, destCredentialID)
	}

	// Capacity is re-checked at execution time, not just at selection
	// time: selection and execution can race. Only agents consume the
	// threshold; phones and voices follow their agent regardless.
	if res.Kind == resource.KindAgent && !dest.HasCapacity() {
		if !opts.Force {
			err := fmt.Errorf("%w: %s", ErrCapacityExhausted, destCredentialID)
			// A replayed attempt burns retry budget on a capacity refusal
			// too; otherwise it would requeue forever.
			if existing != nil {
				s.failAttempt(ctx, existing, err)
			}
			return nil, err
		}
		// Forced override: allowed through, but the credential is flagged
		// and stays out of allocator selection until reconciled.
		if err := s.credRepo.Update(ctx, destCredentialID, map[string]interface{}{"over_capacity": true}); err != nil {
			return nil, err
		}
		s.logger.Warn("forced migration past capacity threshold",
			zap.String("credential_id", destCredentialID),
			zap.String("resource_id", resourceID))
	}

	if opts.DryRun {
		return result, nil
	}

	attempt := existing
	if attempt == nil {
		attempt = &MigrationAttempt{
			ResourceID:         resourceID,
			SourceCredentialID: res.AssignedCredentialID,
			DestCredentialID:   destCredentialID,
			Status:             StatusPending,
		}
		if err := s.attemptRepo.Create(ctx, attempt); err != nil {
			return nil, err
		}
	}

	s.hub.Broadcast(events.EventMigrationStarted, result)

	newRemoteID, err := s.performRemoteMove(ctx, res, dest)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		s.metrics.MigrationsTotal.WithLabelValues("failed").Inc()

		// A rejected secret means the whole credential is unusable, not
		// just this move. Pull it out of selection before the next
		// scheduled probe would.
		if voiceplatform.IsAuthError(err) {
			if uerr := s.credRepo.UpdateHealth(ctx, dest.CredentialID, credential.HealthUnreachable, time.Now()); uerr != nil {
				s.logger.Error("failed to mark credential unreachable",
					zap.String("credential_id", dest.CredentialID),
					zap.Error(uerr))
			} else {
				s.logger.Warn("credential marked unreachable after auth rejection",
					zap.String("credential_id", dest.CredentialID),
					zap.String("resource_id", resourceID))
			}
		}

		result.Error = err.Error()
		s.hub.Broadcast(events.EventMigrationFailed, result)
		return result, err
	}

	if err := s.ledgerService.RecordAssignment(ctx, resourceID, destCredentialID, newRemoteID); err != nil {
		// The remote move happened; a ledger write failure is a store
		// problem and is surfaced as-is. Reconciliation repairs counters.
		return nil, err
	}

	attempt.Status = StatusSucceeded
	attempt.AttemptCount++
	if err := s.attemptRepo.Update(ctx, attempt); err != nil {
		return nil, err
	}
	// Older queued attempts for this resource are now superseded.
	if err := s.attemptRepo.SupersedeOlder(ctx, resourceID, attempt.ID); err != nil {
		s.logger.Warn("failed to supersede older attempts", zap.Error(err))
	}

	s.metrics.MigrationsTotal.WithLabelValues("succeeded").Inc()
	result.Migrated = true

	s.auditService.LogChange(ctx, common_models.AuditActionMigration, "resources", resourceID, map[string]common_models.Change{
		"assigned_credential_id": {Old: res.AssignedCredentialID, New: destCredentialID},
	})
	s.hub.Broadcast(events.EventMigrationSucceeded, result)
	s.logger.Info("resource migrated",
		zap.String("resource_id", resourceID),
		zap.String("source", res.AssignedCredentialID),
		zap.String("dest", destCredentialID))

	return result, nil
}

// performRemoteMove creates the registration on the destination and, only
// after that is acknowledged, removes it from the source. A failed source
// delete leaves an orphan registration behind but never a gap in service;
// the orphan is logged for operator cleanup.
func (s *MigrationServiceImpl) performRemoteMove(ctx context.Context, res *resource.Resource, dest *credential.Credential) (string, error) {
	spec := voiceplatform.ResourceSpec{
		Kind:     string(res.Kind),
		Name:     res.Name,
		OwnerRef: res.OwnerID,
	}

	createCtx, cancel := s.callTimeout(ctx)
	newRemoteID, err := s.create(createCtx, dest.Secret, res.Kind, spec)
	cancel()
	if err != nil {
		return "", fmt.Errorf("destination create failed: %w", err)
	}

	if res.AssignedCredentialID != "" && res.RemoteID != "" {
		source, err := s.credRepo.GetByCredentialID(ctx, res.AssignedCredentialID)
		if err == nil && source != nil {
			deleteCtx, cancel := s.callTimeout(ctx)
			err = s.delete(deleteCtx, source.Secret, res.Kind, res.RemoteID)
			cancel()
			if err != nil && !voiceplatform.IsNotFound(err) {
				s.logger.Warn("source deregistration failed, orphan registration left behind",
					zap.String("resource_id", res.ResourceID),
					zap.String("credential_id", res.AssignedCredentialID),
					zap.String("remote_id", res.RemoteID),
					zap.Error(err))
			}
		}
	}

	return newRemoteID, nil
}

func (s *MigrationServiceImpl) create(ctx context.Context, secret string, kind resource.ResourceKind, spec voiceplatform.ResourceSpec) (string, error) {
	switch kind {
	case resource.KindAgent:
		return s.platform.CreateAgentRegistration(ctx, secret, spec)
	case resource.KindPhoneNumber:
		return s.platform.CreatePhoneNumberRegistration(ctx, secret, spec)
	case resource.KindVoice:
		return s.platform.CreateVoiceRegistration(ctx, secret, spec)
	default:
		return "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (s *MigrationServiceImpl) delete(ctx context.Context, secret string, kind resource.ResourceKind, remoteID string) error {
	switch kind {
	case resource.KindAgent:
		return s.platform.DeleteAgentRegistration(ctx, secret, remoteID)
	case resource.KindPhoneNumber:
		return s.platform.DeletePhoneNumberRegistration(ctx, secret, remoteID)
	case resource.KindVoice:
		return s.platform.DeleteVoiceRegistration(ctx, secret, remoteID)
	default:
		return fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (s *MigrationServiceImpl) failAttempt(ctx context.Context, attempt *MigrationAttempt, cause error) {
	attempt.Status = StatusFailed
	attempt.AttemptCount++
	attempt.LastError = cause.Error()

	if err := s.attemptRepo.Update(ctx, attempt); err != nil {
		s.logger.Error("failed to persist migration attempt", zap.Error(err))
	}

	if attempt.AttemptCount >= s.MaxAttempts() {
		s.logger.Error("migration attempt exhausted retry budget",
			zap.String("resource_id", attempt.ResourceID),
			zap.Int("attempt_count", attempt.AttemptCount),
			zap.String("last_error", attempt.LastError))
	}
}

func (s *MigrationServiceImpl) MigrateAllMismatched(ctx context.Context) (*common_models.BatchSummary, error) {
	report, err := s.ledgerService.SystemWideDriftReport(ctx)
	if err != nil {
		return nil, err
	}

	var targets []ledger.DriftEntry
	for _, entry := range report.Entries {
		if entry.NeedsMigration {
			targets = append(targets, entry)
		}
	}

	summary := s.migrateBatch(ctx, targets)

	s.auditService.LogChange(ctx, common_models.AuditActionMigration, "connections", summary.BatchID, map[string]common_models.Change{
		"batch": {New: summary},
	})
	return summary, nil
}

func (s *MigrationServiceImpl) MigrateAgentPhoneNumbers(ctx context.Context, agentID string) (*common_models.BatchSummary, error) {
	agent, err := s.resourceRepo.GetByResourceID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, agentID)
	}

	conns, err := s.connRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	// An unassigned agent means the target cannot be determined; every
	// phone is reported failed with a distinct reason rather than skipped.
	if agent.AssignedCredentialID == "" {
		summary := &common_models.BatchSummary{
			BatchID: uuid.NewString(),
			Total:   len(conns),
			Errors:  []common_models.ItemError{},
		}
		for _, conn := range conns {
			summary.Failed++
			summary.Errors = append(summary.Errors, common_models.ItemError{
				ResourceID: conn.PhoneNumberID,
				Reason:     ErrNoTargetCredential.Error(),
			})
		}
		s.hub.Broadcast(events.EventBatchCompleted, summary)
		return summary, nil
	}

	var targets []ledger.DriftEntry
	for _, conn := range conns {
		targets = append(targets, ledger.DriftEntry{
			PhoneNumberID:     conn.PhoneNumberID,
			AgentID:           agentID,
			AgentCredentialID: agent.AssignedCredentialID,
		})
	}

	batch := s.migrateBatch(ctx, targets)
	return batch, nil
}

// migrateBatch runs the migrations with bounded concurrency. Resources are
// disjoint, so no cross-resource ordering is needed; one failure never
// aborts the rest.
func (s *MigrationServiceImpl) migrateBatch(ctx context.Context, targets []ledger.DriftEntry) *common_models.BatchSummary {
	summary := &common_models.BatchSummary{
		BatchID: uuid.NewString(),
		Total:   len(targets),
		Errors:  []common_models.ItemError{},
	}

	var mu sync.Mutex
	var batchErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, target := range targets {
		target := target
		g.Go(func() error {
			result, err := s.MigrateResource(gctx, target.PhoneNumberID, target.AgentCredentialID, MigrateOptions{})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, common_models.ItemError{
					ResourceID: target.PhoneNumberID,
					Reason:     err.Error(),
				})
				batchErr = multierr.Append(batchErr, err)
				return nil // isolation: never abort the batch
			}
			if result.NoOp || result.Migrated {
				summary.Succeeded++
			}
			return nil
		})
	}
	g.Wait()

	if batchErr != nil {
		s.logger.Warn("batch migration completed with failures",
			zap.String("batch_id", summary.BatchID),
			zap.Int("failed", summary.Failed),
			zap.Error(batchErr))
	}

	s.hub.Broadcast(events.EventBatchCompleted, summary)
	return summary
}

func (s *MigrationServiceImpl) ReplayAttempt(ctx context.Context, attempt *MigrationAttempt) (*MigrationResult, error) {
	return s.migrate(ctx, attempt.ResourceID, attempt.DestCredentialID, MigrateOptions{}, attempt)
}
