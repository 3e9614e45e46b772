package resource

import (
	"context"
	"errors"
	"fmt"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/config"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/credential"
	"voicepool/internal/voiceplatform"

	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidKind   = errors.New("invalid resource kind")
)

// CredentialSelector decides which credential a new resource lands on.
// Satisfied by the allocator service; kept local to avoid a package cycle.
type CredentialSelector interface {
	SelectForOwner(ctx context.Context, ownerID string) (*credential.Credential, error)
}

// AssignmentRecorder persists a placement after the remote side confirms
// it. Satisfied by the ledger service.
type AssignmentRecorder interface {
	RecordAssignment(ctx context.Context, resourceID, credentialID, remoteID string) error
}

type ResourceService interface {
	// ProvisionResource stores the resource, picks a credential and
	// registers it remotely. Local state only reflects placements the
	// platform has acknowledged.
	ProvisionResource(ctx context.Context, res *Resource) (*Resource, error)
	GetResource(ctx context.Context, resourceID string) (*Resource, error)
	ListResources(ctx context.Context, filter map[string]interface{}) ([]Resource, error)
	// Connect routes a phone number to an agent. Both must exist.
	Connect(ctx context.Context, phoneNumberID, agentID string) (*Connection, error)
	ListConnections(ctx context.Context) ([]Connection, error)
	Disconnect(ctx context.Context, phoneNumberID string) error
}

type ResourceServiceImpl struct {
	repo         ResourceRepository
	connRepo     ConnectionRepository
	selector     CredentialSelector
	recorder     AssignmentRecorder
	platform     voiceplatform.Client
	auditService audit.AuditService
	logger       *zap.Logger
	callTimeout  func(ctx context.Context) (context.Context, context.CancelFunc)
}

func NewResourceService(
	cfg *config.Config,
	repo ResourceRepository,
	connRepo ConnectionRepository,
	selector CredentialSelector,
	recorder AssignmentRecorder,
	platform voiceplatform.Client,
	auditService audit.AuditService,
	logger *zap.Logger,
) ResourceService {
	timeout := cfg.CallTimeout
	return &ResourceServiceImpl{
		repo:         repo,
		connRepo:     connRepo,
		selector:     selector,
		recorder:     recorder,
		platform:     platform,
		auditService: auditService,
		logger:       logger,
		callTimeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, timeout)
		},
	}
}

func (s *ResourceServiceImpl) ProvisionResource(ctx context.Context, res *Resource) (*Resource, error) {
	if res.ResourceID == "" {
		return nil, errors.New("resource_id is required")
	}
	if res.Kind != KindAgent && res.Kind != KindPhoneNumber && res.Kind != KindVoice {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, res.Kind)
	}

	existing, err := s.repo.GetByResourceID(ctx, res.ResourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, res.ResourceID)
	}

	// Stored unassigned first so a remote failure leaves a replayable
	// record instead of nothing.
	res.AssignedCredentialID = ""
	res.RemoteID = ""
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}

	cred, err := s.selector.SelectForOwner(ctx, res.OwnerID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := s.callTimeout(ctx)
	remoteID, err := s.createRemote(callCtx, cred.Secret, res)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("remote registration failed: %w", err)
	}

	if err := s.recorder.RecordAssignment(ctx, res.ResourceID, cred.CredentialID, remoteID); err != nil {
		return nil, err
	}
	res.AssignedCredentialID = cred.CredentialID
	res.RemoteID = remoteID

	s.auditService.LogChange(ctx, common_models.AuditActionCreate, "resources", res.ResourceID, map[string]common_models.Change{
		"kind":                   {New: res.Kind},
		"assigned_credential_id": {New: cred.CredentialID},
	})
	s.logger.Info("resource provisioned",
		zap.String("resource_id", res.ResourceID),
		zap.String("kind", string(res.Kind)),
		zap.String("credential_id", cred.CredentialID))

	return res, nil
}

func (s *ResourceServiceImpl) createRemote(ctx context.Context, secret string, res *Resource) (string, error) {
	spec := voiceplatform.ResourceSpec{
		Kind:     string(res.Kind),
		Name:     res.Name,
		OwnerRef: res.OwnerID,
	}
	switch res.Kind {
	case KindAgent:
		return s.platform.CreateAgentRegistration(ctx, secret, spec)
	case KindPhoneNumber:
		return s.platform.CreatePhoneNumberRegistration(ctx, secret, spec)
	default:
		return s.platform.CreateVoiceRegistration(ctx, secret, spec)
	}
}

func (s *ResourceServiceImpl) GetResource(ctx context.Context, resourceID string) (*Resource, error) {
	res, err := s.repo.GetByResourceID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, resourceID)
	}
	return res, nil
}

func (s *ResourceServiceImpl) ListResources(ctx context.Context, filter map[string]interface{}) ([]Resource, error) {
	return s.repo.List(ctx, filter)
}

func (s *ResourceServiceImpl) Connect(ctx context.Context, phoneNumberID, agentID string) (*Connection, error) {
	phone, err := s.repo.GetByResourceID(ctx, phoneNumberID)
	if err != nil {
		return nil, err
	}
	if phone == nil || phone.Kind != KindPhoneNumber {
		return nil, fmt.Errorf("%w: phone number %s", ErrNotFound, phoneNumberID)
	}

	agent, err := s.repo.GetByResourceID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil || agent.Kind != KindAgent {
		return nil, fmt.Errorf("%w: agent %s", ErrNotFound, agentID)
	}

	if existing, err := s.connRepo.GetByPhoneNumber(ctx, phoneNumberID); err != nil {
		return nil, err
	} else if existing != nil {
		// One agent per phone number; reconnecting replaces the route.
		if err := s.connRepo.Delete(ctx, phoneNumberID); err != nil {
			return nil, err
		}
	}

	conn := &Connection{PhoneNumberID: phoneNumberID, AgentID: agentID}
	if err := s.connRepo.Create(ctx, conn); err != nil {
		return nil, err
	}

	s.auditService.LogChange(ctx, common_models.AuditActionUpdate, "connections", phoneNumberID, map[string]common_models.Change{
		"agent_id": {New: agentID},
	})
	return conn, nil
}

func (s *ResourceServiceImpl) ListConnections(ctx context.Context) ([]Connection, error) {
	return s.connRepo.List(ctx)
}

func (s *ResourceServiceImpl) Disconnect(ctx context.Context, phoneNumberID string) error {
	return s.connRepo.Delete(ctx, phoneNumberID)
}
