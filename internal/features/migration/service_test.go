package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicepool/internal/config"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/events"
	"voicepool/internal/features/ledger"
	"voicepool/internal/features/resource"
	"voicepool/internal/metrics"
	"voicepool/internal/voiceplatform"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type migrationFixture struct {
	service   MigrationService
	creds     *memCredRepo
	resources *memResourceRepo
	conns     *memConnRepo
	attempts  *memAttemptRepo
	platform  *voiceplatform.FakeClient
	ledger    ledger.LedgerService
}

func newMigrationFixture(t *testing.T) *migrationFixture {
	t.Helper()

	cfg := &config.Config{
		CallTimeout:      time.Second,
		ProbeTimeout:     time.Second,
		MigrationWorkers: 4,
		MaxAttempts:      3,
	}

	creds := newMemCredRepo()
	resources := newMemResourceRepo()
	conns := newMemConnRepo()
	attempts := newMemAttemptRepo()
	platform := voiceplatform.NewFakeClient()
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	logger := zap.NewNop()

	ledgerService := ledger.NewLedgerService(creds, resources, conns, noopAudit{}, m, logger)
	service := NewMigrationService(cfg, attempts, creds, resources, conns, ledgerService, nil, platform, noopAudit{}, events.NewHub(), m, logger)

	return &migrationFixture{
		service:   service,
		creds:     creds,
		resources: resources,
		conns:     conns,
		attempts:  attempts,
		platform:  platform,
		ledger:    ledgerService,
	}
}

func (f *migrationFixture) addCredential(t *testing.T, id, secret string, threshold int) {
	t.Helper()
	err := f.creds.Create(context.Background(), &credential.Credential{
		CredentialID:         id,
		Secret:               secret,
		IsActive:             true,
		HealthStatus:         credential.HealthHealthy,
		MaxResourceThreshold: threshold,
	})
	require.NoError(t, err)
}

// addPlacedResource registers the resource on the platform under the given
// credential and stores the matching local row.
func (f *migrationFixture) addPlacedResource(t *testing.T, id string, kind resource.ResourceKind, owner, credID, secret string) {
	t.Helper()
	ctx := context.Background()

	spec := voiceplatform.ResourceSpec{Kind: string(kind), Name: id, OwnerRef: owner}
	remoteID, err := f.platform.CreateAgentRegistration(ctx, secret, spec)
	require.NoError(t, err)

	err = f.resources.Create(ctx, &resource.Resource{
		ResourceID:           id,
		Kind:                 kind,
		Name:                 id,
		OwnerID:              owner,
		RemoteID:             remoteID,
		AssignedCredentialID: credID,
	})
	require.NoError(t, err)
}

func TestMigrateResourceMovesRegistration(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")

	result, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, result.Migrated)
	assert.Equal(t, "cred-a", result.SourceCredentialID)
	assert.Equal(t, "cred-b", result.DestCredentialID)

	moved, err := f.resources.GetByResourceID(ctx, "phone-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-b", moved.AssignedCredentialID)
	assert.True(t, f.platform.Registered("sk-b", moved.RemoteID))
	assert.Equal(t, 1, f.platform.RegistrationCount("phone-1"))
}

func TestMigrateResourceNeverObservesZeroRegistrations(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")

	// Bounce the resource back and forth; at no point during any delete may
	// the registration count for it reach zero.
	dests := []string{"cred-b", "cred-a", "cred-b", "cred-a"}
	for _, dest := range dests {
		_, err := f.service.MigrateResource(ctx, "agent-1", dest, MigrateOptions{})
		require.NoError(t, err)
	}

	assert.Empty(t, f.platform.ZeroObservations())
	assert.Equal(t, 1, f.platform.RegistrationCount("agent-1"))
}

func TestMigrateResourceNoOpWhenAlreadyThere(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")

	result, err := f.service.MigrateResource(ctx, "phone-1", "cred-a", MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.False(t, result.Migrated)

	// Repeated identical request stays a no-op and creates no attempts.
	result, err = f.service.MigrateResource(ctx, "phone-1", "cred-a", MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.Empty(t, f.attempts.all())
}

func TestMigrateResourceDryRunChangesNothing(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")

	result, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.False(t, result.Migrated)

	unchanged, err := f.resources.GetByResourceID(ctx, "phone-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-a", unchanged.AssignedCredentialID)
	assert.Empty(t, f.attempts.all())
}

func TestMigrateResourceCapacityRecheck(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 1)
	f.addPlacedResource(t, "agent-existing", resource.KindAgent, "tenant-2", "cred-b", "sk-b")
	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")

	// Destination already holds its one allowed agent.
	require.NoError(t, f.creds.SetCounts(ctx, "cred-b", 1, 1, false))

	_, err := f.service.MigrateResource(ctx, "agent-1", "cred-b", MigrateOptions{})
	assert.ErrorIs(t, err, ErrCapacityExhausted)

	unchanged, err := f.resources.GetByResourceID(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-a", unchanged.AssignedCredentialID)
}

func TestMigrateResourceForcePastCapacity(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 1)
	f.addPlacedResource(t, "agent-existing", resource.KindAgent, "tenant-2", "cred-b", "sk-b")
	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")
	require.NoError(t, f.creds.SetCounts(ctx, "cred-b", 1, 1, false))

	result, err := f.service.MigrateResource(ctx, "agent-1", "cred-b", MigrateOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Migrated)

	// The forced destination is flagged and drops out of selection.
	dest, err := f.creds.GetByCredentialID(ctx, "cred-b")
	require.NoError(t, err)
	assert.True(t, dest.OverCapacity)
	assert.False(t, dest.Selectable())
}

func TestMigrateResourceFailedCreateLeavesAssignmentAndQueuesAttempt(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")
	f.platform.FailCreate["sk-b"] = true

	_, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.Error(t, err)

	unchanged, err := f.resources.GetByResourceID(ctx, "phone-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-a", unchanged.AssignedCredentialID)
	assert.True(t, f.platform.Registered("sk-a", unchanged.RemoteID))

	attempts := f.attempts.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusFailed, attempts[0].Status)
	assert.Equal(t, 1, attempts[0].AttemptCount)
	assert.NotEmpty(t, attempts[0].LastError)

	// Still under the retry budget, so the attempt sits in the queue.
	queued, err := f.attempts.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestMigrateResourceSupersedesOlderAttempts(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")

	// First try fails and stays queued.
	f.platform.FailCreate["sk-b"] = true
	_, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.Error(t, err)

	// Second try succeeds; the old failed attempt must not replay later.
	delete(f.platform.FailCreate, "sk-b")
	result, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, result.Migrated)

	queued, err := f.attempts.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, queued)

	var superseded, succeeded int
	for _, a := range f.attempts.all() {
		switch a.Status {
		case StatusSuperseded:
			superseded++
		case StatusSucceeded:
			succeeded++
		}
	}
	assert.Equal(t, 1, superseded)
	assert.Equal(t, 1, succeeded)
}

func TestMigrateResourceUnknownResource(t *testing.T) {
	f := newMigrationFixture(t)
	f.addCredential(t, "cred-a", "sk-a", 10)

	_, err := f.service.MigrateResource(context.Background(), "missing", "cred-a", MigrateOptions{})
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestMigrateResourceEmptyDestination(t *testing.T) {
	f := newMigrationFixture(t)

	_, err := f.service.MigrateResource(context.Background(), "phone-1", "", MigrateOptions{})
	assert.ErrorIs(t, err, ErrNoTargetCredential)
}

func TestMigrateAllMismatchedIsolatesFailures(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addCredential(t, "cred-c", "sk-c", 10)

	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")
	f.addPlacedResource(t, "agent-2", resource.KindAgent, "tenant-2", "cred-c", "sk-c")
	// Both phones drifted away from their agents.
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-b", "sk-b")
	f.addPlacedResource(t, "phone-2", resource.KindPhoneNumber, "tenant-2", "cred-b", "sk-b")
	require.NoError(t, f.conns.Create(ctx, &resource.Connection{PhoneNumberID: "phone-1", AgentID: "agent-1"}))
	require.NoError(t, f.conns.Create(ctx, &resource.Connection{PhoneNumberID: "phone-2", AgentID: "agent-2"}))

	// phone-2's target credential rejects creates; phone-1 must still move.
	f.platform.FailCreate["sk-c"] = true

	summary, err := f.service.MigrateAllMismatched(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "phone-2", summary.Errors[0].ResourceID)

	moved, err := f.resources.GetByResourceID(ctx, "phone-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-a", moved.AssignedCredentialID)

	stuck, err := f.resources.GetByResourceID(ctx, "phone-2")
	require.NoError(t, err)
	assert.Equal(t, "cred-b", stuck.AssignedCredentialID)
}

func TestMigrateAgentPhoneNumbersUnassignedAgent(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	require.NoError(t, f.resources.Create(ctx, &resource.Resource{
		ResourceID: "agent-1",
		Kind:       resource.KindAgent,
		OwnerID:    "tenant-1",
	}))
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")
	require.NoError(t, f.conns.Create(ctx, &resource.Connection{PhoneNumberID: "phone-1", AgentID: "agent-1"}))

	summary, err := f.service.MigrateAgentPhoneNumbers(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Reason, ErrNoTargetCredential.Error())
}

func TestMigrateAgentPhoneNumbersMovesAllPhones(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-b", "sk-b")
	f.addPlacedResource(t, "phone-2", resource.KindPhoneNumber, "tenant-1", "cred-b", "sk-b")
	require.NoError(t, f.conns.Create(ctx, &resource.Connection{PhoneNumberID: "phone-1", AgentID: "agent-1"}))
	require.NoError(t, f.conns.Create(ctx, &resource.Connection{PhoneNumberID: "phone-2", AgentID: "agent-1"}))

	summary, err := f.service.MigrateAgentPhoneNumbers(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	for _, id := range []string{"phone-1", "phone-2"} {
		res, err := f.resources.GetByResourceID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "cred-a", res.AssignedCredentialID)
	}
}

func TestReplayAttemptAdvancesSameAttempt(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")

	f.platform.FailCreate["sk-b"] = true
	_, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.Error(t, err)

	queued, err := f.attempts.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	// Replay while the destination still fails: same attempt, count 2.
	_, err = f.service.ReplayAttempt(ctx, &queued[0])
	require.Error(t, err)

	attempts := f.attempts.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, 2, attempts[0].AttemptCount)
	assert.Equal(t, StatusFailed, attempts[0].Status)

	// Replay after the destination recovers: the same attempt succeeds.
	delete(f.platform.FailCreate, "sk-b")
	queued, err = f.attempts.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	result, err := f.service.ReplayAttempt(ctx, &queued[0])
	require.NoError(t, err)
	assert.True(t, result.Migrated)

	attempts = f.attempts.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusSucceeded, attempts[0].Status)
	assert.Equal(t, 3, attempts[0].AttemptCount)
}

func TestAttemptExhaustsRetryBudget(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")
	f.platform.FailCreate["sk-b"] = true

	_, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.Error(t, err)

	for i := 0; i < 2; i++ {
		queued, err := f.attempts.ListReplayable(ctx, 3, 0)
		require.NoError(t, err)
		require.Len(t, queued, 1)
		_, err = f.service.ReplayAttempt(ctx, &queued[0])
		require.Error(t, err)
	}

	// Budget burned: failed is now terminal and leaves the queue.
	queued, err := f.attempts.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, queued)

	attempts := f.attempts.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusFailed, attempts[0].Status)
	assert.Equal(t, 3, attempts[0].AttemptCount)
}

func TestMigrateResourceSourceDeleteFailureStillSucceeds(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")

	// Source secret gets revoked mid-migration: the delete will fail but
	// the destination registration already exists, so the move stands.
	res, err := f.resources.GetByResourceID(ctx, "phone-1")
	require.NoError(t, err)
	require.True(t, f.platform.Registered("sk-a", res.RemoteID))
	f.platform.BadSecrets["sk-a"] = true

	result, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, result.Migrated)

	moved, err := f.resources.GetByResourceID(ctx, "phone-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-b", moved.AssignedCredentialID)
	assert.True(t, f.platform.Registered("sk-b", moved.RemoteID))
}

func TestPlatformErrorClassification(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-revoked", 10)
	f.addPlacedResource(t, "phone-1", resource.KindPhoneNumber, "tenant-1", "cred-a", "sk-a")
	f.platform.BadSecrets["sk-revoked"] = true

	_, err := f.service.MigrateResource(ctx, "phone-1", "cred-b", MigrateOptions{})
	require.Error(t, err)

	var perr *voiceplatform.PlatformError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, voiceplatform.ErrKindAuth, perr.Kind)
	assert.True(t, voiceplatform.IsAuthError(err))
}

func TestMigrateResourceAuthFailureMarksDestinationUnreachable(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-revoked", 10)
	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")
	f.platform.BadSecrets["sk-revoked"] = true

	_, err := f.service.MigrateResource(ctx, "agent-1", "cred-b", MigrateOptions{})
	require.Error(t, err)
	require.True(t, voiceplatform.IsAuthError(err))

	dest, err := f.creds.GetByCredentialID(ctx, "cred-b")
	require.NoError(t, err)
	assert.Equal(t, credential.HealthUnreachable, dest.HealthStatus)
	assert.False(t, dest.Selectable())
	assert.NotNil(t, dest.LastHealthCheckAt)

	// The resource never left its source.
	res, err := f.resources.GetByResourceID(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "cred-a", res.AssignedCredentialID)
}

func TestReplayCapacityRefusalBurnsRetryBudget(t *testing.T) {
	f := newMigrationFixture(t)
	ctx := context.Background()

	f.addCredential(t, "cred-a", "sk-a", 10)
	f.addCredential(t, "cred-b", "sk-b", 1)
	f.addPlacedResource(t, "agent-existing", resource.KindAgent, "tenant-2", "cred-b", "sk-b")
	f.addPlacedResource(t, "agent-1", resource.KindAgent, "tenant-1", "cred-a", "sk-a")

	// Destination already holds its one allowed agent.
	require.NoError(t, f.creds.SetCounts(ctx, "cred-b", 1, 1, false))

	attempt := &MigrationAttempt{
		ResourceID:         "agent-1",
		SourceCredentialID: "cred-a",
		DestCredentialID:   "cred-b",
		Status:             StatusFailed,
		AttemptCount:       1,
		LastError:          "earlier failure",
	}
	require.NoError(t, f.attempts.Create(ctx, attempt))

	_, err := f.service.ReplayAttempt(ctx, attempt)
	assert.ErrorIs(t, err, ErrCapacityExhausted)
	assert.Equal(t, 2, attempt.AttemptCount)
	assert.Equal(t, StatusFailed, attempt.Status)

	_, err = f.service.ReplayAttempt(ctx, attempt)
	assert.ErrorIs(t, err, ErrCapacityExhausted)
	assert.Equal(t, 3, attempt.AttemptCount)

	// Budget burned on capacity refusals alone; the attempt has left the
	// queue instead of replaying forever.
	queued, err := f.attempts.ListReplayable(ctx, f.service.MaxAttempts(), 0)
	require.NoError(t, err)
	assert.Empty(t, queued)
}
