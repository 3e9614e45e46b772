package allocator

import (
	"context"
	"errors"

	"voicepool/internal/features/credential"
	"voicepool/internal/features/resource"
	"voicepool/internal/features/settings"

	"go.uber.org/zap"
)

// ErrNoCapacity means no credential in the pool can take the assignment.
// Callers surface it to the operator instead of retrying.
var ErrNoCapacity = errors.New("no credential has spare capacity")

// SelectionRequest describes one allocation decision.
type SelectionRequest struct {
	// OwnerID, when set, lets the sticky-owner strategy prefer a credential
	// the owner's other agents already live on.
	OwnerID string `json:"owner_id,omitempty"`
	// ExcludeCredentialID removes one credential from consideration; used
	// when re-assigning away from a specific source.
	ExcludeCredentialID string `json:"exclude_credential_id,omitempty"`
}

// Strategy is one step in the allocation chain. Returning ok=false means
// "try the next strategy"; an error aborts the chain.
type Strategy interface {
	Name() string
	Select(ctx context.Context, req SelectionRequest) (*credential.Credential, bool, error)
}

type AllocatorService interface {
	// SelectCredential runs the strategy chain and returns the chosen
	// credential. Pure read path: callers record the assignment through the
	// ledger only after the remote operation succeeds.
	SelectCredential(ctx context.Context, req SelectionRequest) (*credential.Credential, error)
}

type AllocatorServiceImpl struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewAllocatorService(
	credRepo credential.CredentialRepository,
	resourceRepo resource.ResourceRepository,
	settingsRepo settings.SettingsRepository,
	logger *zap.Logger,
) AllocatorService {
	return &AllocatorServiceImpl{
		strategies: []Strategy{
			&stickyOwnerStrategy{credRepo: credRepo, resourceRepo: resourceRepo},
			// Least-loaded is the guaranteed-terminating fallback and must
			// stay last in the chain.
			&leastLoadedStrategy{credRepo: credRepo, settingsRepo: settingsRepo, logger: logger},
		},
		logger: logger,
	}
}

func (s *AllocatorServiceImpl) SelectCredential(ctx context.Context, req SelectionRequest) (*credential.Credential, error) {
	for _, strategy := range s.strategies {
		cred, ok, err := strategy.Select(ctx, req)
		if err != nil {
			return nil, err
		}
		if ok {
			s.logger.Debug("credential selected",
				zap.String("strategy", strategy.Name()),
				zap.String("credential_id", cred.CredentialID),
				zap.Int("assigned_agent_count", cred.AssignedAgentCount))
			return cred, nil
		}
	}

	s.logger.Warn("allocation failed: pool exhausted",
		zap.String("exclude", req.ExcludeCredentialID))
	return nil, ErrNoCapacity
}

// stickyOwnerStrategy prefers the credential the owner's existing agents
// are already assigned to, provided it still has capacity. Keeping one
// owner's resources together limits cross-credential drift.
type stickyOwnerStrategy struct {
	credRepo     credential.CredentialRepository
	resourceRepo resource.ResourceRepository
}

func (s *stickyOwnerStrategy) Name() string { return "sticky_owner" }

func (s *stickyOwnerStrategy) Select(ctx context.Context, req SelectionRequest) (*credential.Credential, bool, error) {
	if req.OwnerID == "" {
		return nil, false, nil
	}

	agents, err := s.resourceRepo.ListAgentsByOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, false, err
	}

	for _, agent := range agents {
		if agent.AssignedCredentialID == "" || agent.AssignedCredentialID == req.ExcludeCredentialID {
			continue
		}
		cred, err := s.credRepo.GetByCredentialID(ctx, agent.AssignedCredentialID)
		if err != nil {
			return nil, false, err
		}
		if cred != nil && cred.Selectable() {
			return cred, true, nil
		}
	}

	return nil, false, nil
}

// leastLoadedStrategy picks the selectable credential with the lowest
// assigned agent count, tie-broken by user count then insertion order.
// An operator-defined selection script, if configured, can veto candidates.
type leastLoadedStrategy struct {
	credRepo     credential.CredentialRepository
	settingsRepo settings.SettingsRepository
	logger       *zap.Logger
}

func (s *leastLoadedStrategy) Name() string { return "least_loaded" }

func (s *leastLoadedStrategy) Select(ctx context.Context, req SelectionRequest) (*credential.Credential, bool, error) {
	candidates, err := s.credRepo.ListSelectable(ctx, req.ExcludeCredentialID)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	script := ""
	if s.settingsRepo != nil {
		if cfg, err := s.settingsRepo.Get(ctx); err == nil && cfg != nil {
			script = cfg.SelectionScript
		}
	}

	for i := range candidates {
		cand := &candidates[i]
		if script != "" {
			eligible, err := evalSelectionScript(ctx, script, cand)
			if err != nil {
				// A broken script must not take the pool down; log and
				// fall through to plain least-loaded.
				s.logger.Warn("selection script failed, ignoring", zap.Error(err))
			} else if !eligible {
				continue
			}
		}
		return cand, true, nil
	}

	return nil, false, nil
}
