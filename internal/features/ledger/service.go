package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/resource"
	"voicepool/internal/metrics"

	"go.uber.org/zap"
)

var ErrResourceNotFound = errors.New("resource not found")

// LedgerService is the authoritative source of resource-to-credential
// assignment. Counter deltas on record are an optimization; Recalculate is
// ground truth and the designed repair path for any drift from crashes or
// racing migrations.
type LedgerService interface {
	// RecordAssignment moves a resource onto a credential: idempotent
	// upsert of the mapping plus counter deltas on both credentials in the
	// same logical update.
	RecordAssignment(ctx context.Context, resourceID, credentialID, remoteID string) error
	// RecalculateCounts recomputes every credential's counters from the
	// resource rows and overwrites the stored values. Safe to run anytime.
	RecalculateCounts(ctx context.Context) error
	DetectDrift(ctx context.Context, conn resource.Connection) (DriftEntry, error)
	SystemWideDriftReport(ctx context.Context) (*DriftReport, error)
}

type LedgerServiceImpl struct {
	credRepo     credential.CredentialRepository
	resourceRepo resource.ResourceRepository
	connRepo     resource.ConnectionRepository
	auditService audit.AuditService
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewLedgerService(
	credRepo credential.CredentialRepository,
	resourceRepo resource.ResourceRepository,
	connRepo resource.ConnectionRepository,
	auditService audit.AuditService,
	m *metrics.Metrics,
	logger *zap.Logger,
) LedgerService {
	return &LedgerServiceImpl{
		credRepo:     credRepo,
		resourceRepo: resourceRepo,
		connRepo:     connRepo,
		auditService: auditService,
		metrics:      m,
		logger:       logger,
	}
}

func (s *LedgerServiceImpl) RecordAssignment(ctx context.Context, resourceID, credentialID, remoteID string) error {
	res, err := s.resourceRepo.GetByResourceID(ctx, resourceID)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, resourceID)
	}

	prior := res.AssignedCredentialID
	if prior == credentialID && res.RemoteID == remoteID {
		// Repeated identical request; nothing to do.
		return nil
	}

	if err := s.resourceRepo.UpdateAssignment(ctx, resourceID, credentialID, remoteID); err != nil {
		return err
	}

	agentDelta := 0
	if res.Kind == resource.KindAgent {
		agentDelta = 1
	}

	if prior != credentialID {
		// Target gains the resource; the owner counts once per credential.
		userDelta, err := s.ownerDelta(ctx, res.OwnerID, credentialID, true)
		if err != nil {
			return err
		}
		if err := s.credRepo.AdjustCounts(ctx, credentialID, agentDelta, userDelta); err != nil {
			return err
		}

		if prior != "" {
			userDelta, err := s.ownerDelta(ctx, res.OwnerID, prior, false)
			if err != nil {
				return err
			}
			if err := s.credRepo.AdjustCounts(ctx, prior, -agentDelta, userDelta); err != nil {
				return err
			}
		}
	}

	s.logger.Info("assignment recorded",
		zap.String("resource_id", resourceID),
		zap.String("credential_id", credentialID),
		zap.String("prior_credential_id", prior))

	return nil
}

// ownerDelta computes the user-count delta for one credential after the
// assignment row has already been written. When the credential gained the
// resource, the owner's first row there means +1; when it lost it, zero
// rows left means -1.
func (s *LedgerServiceImpl) ownerDelta(ctx context.Context, ownerID, credentialID string, gained bool) (int, error) {
	n, err := s.resourceRepo.CountByOwnerAndCredential(ctx, ownerID, credentialID)
	if err != nil {
		return 0, err
	}
	if gained {
		if n == 1 {
			return 1, nil
		}
		return 0, nil
	}
	if n == 0 {
		return -1, nil
	}
	return 0, nil
}

func (s *LedgerServiceImpl) RecalculateCounts(ctx context.Context) error {
	creds, err := s.credRepo.List(ctx, nil)
	if err != nil {
		return err
	}
	resources, err := s.resourceRepo.List(ctx, nil)
	if err != nil {
		return err
	}

	agentCounts := make(map[string]int)
	owners := make(map[string]map[string]bool)
	for _, res := range resources {
		if res.AssignedCredentialID == "" {
			continue
		}
		if res.Kind == resource.KindAgent {
			agentCounts[res.AssignedCredentialID]++
		}
		if owners[res.AssignedCredentialID] == nil {
			owners[res.AssignedCredentialID] = make(map[string]bool)
		}
		owners[res.AssignedCredentialID][res.OwnerID] = true
	}

	freeCapacity := 0
	for _, cred := range creds {
		agents := agentCounts[cred.CredentialID]
		users := len(owners[cred.CredentialID])
		overCapacity := agents > cred.MaxResourceThreshold

		if err := s.credRepo.SetCounts(ctx, cred.CredentialID, agents, users, overCapacity); err != nil {
			return err
		}
		if cred.IsActive && !overCapacity && agents < cred.MaxResourceThreshold {
			freeCapacity += cred.MaxResourceThreshold - agents
		}
		if overCapacity {
			s.logger.Warn("credential over capacity after reconciliation",
				zap.String("credential_id", cred.CredentialID),
				zap.Int("assigned_agent_count", agents),
				zap.Int("max_resource_threshold", cred.MaxResourceThreshold))
		}
	}
	s.metrics.PoolCapacityFree.Set(float64(freeCapacity))

	s.auditService.LogChange(ctx, common_models.AuditActionReconcile, "credentials", "all", map[string]common_models.Change{
		"credentials_reconciled": {New: len(creds)},
	})

	return nil
}

func (s *LedgerServiceImpl) DetectDrift(ctx context.Context, conn resource.Connection) (DriftEntry, error) {
	entry := DriftEntry{
		PhoneNumberID: conn.PhoneNumberID,
		AgentID:       conn.AgentID,
		Connected:     true,
	}

	phone, err := s.resourceRepo.GetByResourceID(ctx, conn.PhoneNumberID)
	if err != nil {
		return entry, err
	}
	agent, err := s.resourceRepo.GetByResourceID(ctx, conn.AgentID)
	if err != nil {
		return entry, err
	}
	if phone == nil || agent == nil {
		return entry, fmt.Errorf("%w: connection %s -> %s", ErrResourceNotFound, conn.PhoneNumberID, conn.AgentID)
	}

	entry.PhoneCredentialID = phone.AssignedCredentialID
	entry.AgentCredentialID = agent.AssignedCredentialID

	// Drift iff the agent has a credential and the phone's differs
	// (including the phone having none at all).
	entry.NeedsMigration = agent.AssignedCredentialID != "" &&
		phone.AssignedCredentialID != agent.AssignedCredentialID

	return entry, nil
}

func (s *LedgerServiceImpl) SystemWideDriftReport(ctx context.Context) (*DriftReport, error) {
	report := &DriftReport{
		GeneratedAt: time.Now(),
		Entries:     []DriftEntry{},
	}

	conns, err := s.connRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	connectedPhones := make(map[string]bool)
	for _, conn := range conns {
		connectedPhones[conn.PhoneNumberID] = true

		entry, err := s.DetectDrift(ctx, conn)
		if err != nil {
			// A dangling connection is reported, not fatal to the sweep.
			s.logger.Warn("drift check failed for connection",
				zap.String("phone_number_id", conn.PhoneNumberID),
				zap.String("agent_id", conn.AgentID),
				zap.Error(err))
			continue
		}
		if entry.NeedsMigration {
			report.DriftCount++
		}
		report.Entries = append(report.Entries, entry)
	}

	// Unconnected phones are reported but never flagged for migration.
	phones, err := s.resourceRepo.List(ctx, map[string]interface{}{"kind": resource.KindPhoneNumber})
	if err != nil {
		return nil, err
	}
	for _, phone := range phones {
		if connectedPhones[phone.ResourceID] {
			continue
		}
		report.Entries = append(report.Entries, DriftEntry{
			PhoneNumberID:     phone.ResourceID,
			Connected:         false,
			NeedsMigration:    false,
			PhoneCredentialID: phone.AssignedCredentialID,
		})
	}

	return report, nil
}
