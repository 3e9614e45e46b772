package health

import (
	"context"
	"testing"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/config"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/events"
	"voicepool/internal/metrics"
	"voicepool/internal/voiceplatform"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type probeCredRepo struct {
	creds map[string]*credential.Credential
}

func newProbeCredRepo() *probeCredRepo {
	return &probeCredRepo{creds: make(map[string]*credential.Credential)}
}

func (r *probeCredRepo) Create(ctx context.Context, cred *credential.Credential) error {
	cp := *cred
	r.creds[cred.CredentialID] = &cp
	return nil
}

func (r *probeCredRepo) GetByCredentialID(ctx context.Context, credentialID string) (*credential.Credential, error) {
	c, ok := r.creds[credentialID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *probeCredRepo) List(ctx context.Context, filter map[string]interface{}) ([]credential.Credential, error) {
	return nil, nil
}

func (r *probeCredRepo) ListActive(ctx context.Context) ([]credential.Credential, error) {
	out := []credential.Credential{}
	for _, c := range r.creds {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *probeCredRepo) ListSelectable(ctx context.Context, excludeCredentialID string) ([]credential.Credential, error) {
	return nil, nil
}

func (r *probeCredRepo) Update(ctx context.Context, credentialID string, updates map[string]interface{}) error {
	return nil
}

func (r *probeCredRepo) UpdateHealth(ctx context.Context, credentialID string, status credential.HealthStatus, checkedAt time.Time) error {
	c, ok := r.creds[credentialID]
	if !ok {
		return nil
	}
	c.HealthStatus = status
	c.LastHealthCheckAt = &checkedAt
	return nil
}

func (r *probeCredRepo) AdjustCounts(ctx context.Context, credentialID string, agentDelta, userDelta int) error {
	c := r.creds[credentialID]
	c.AssignedAgentCount += agentDelta
	c.AssignedUserCount += userDelta
	return nil
}

func (r *probeCredRepo) SetCounts(ctx context.Context, credentialID string, agentCount, userCount int, overCapacity bool) error {
	return nil
}

func (r *probeCredRepo) Delete(ctx context.Context, credentialID string) error {
	delete(r.creds, credentialID)
	return nil
}

func (r *probeCredRepo) EnsureIndexes(ctx context.Context) error { return nil }

type mutedAudit struct {
	actions []common_models.AuditAction
}

func (m *mutedAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	m.actions = append(m.actions, action)
	return nil
}

func (m *mutedAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type healthFixture struct {
	svc      HealthService
	credRepo *probeCredRepo
	platform *voiceplatform.FakeClient
	audit    *mutedAudit
}

func newHealthFixture() *healthFixture {
	credRepo := newProbeCredRepo()
	platform := voiceplatform.NewFakeClient()
	auditSvc := &mutedAudit{}
	cfg := &config.Config{ProbeTimeout: time.Second}
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	svc := NewHealthService(cfg, credRepo, platform, auditSvc, events.NewHub(), m, zap.NewNop())
	return &healthFixture{svc: svc, credRepo: credRepo, platform: platform, audit: auditSvc}
}

func (f *healthFixture) addCredential(id string, status credential.HealthStatus, active bool) {
	f.credRepo.Create(context.Background(), &credential.Credential{
		CredentialID:         id,
		Secret:               "secret-" + id,
		IsActive:             active,
		HealthStatus:         status,
		MaxResourceThreshold: 10,
		CreatedAt:            time.Now(),
	})
}

func TestHealthCheckHealthyCredentialStaysHealthy(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-a", credential.HealthHealthy, true)

	results, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, credential.HealthHealthy, results[0].Current)
	assert.False(t, results[0].Changed)
	assert.Empty(t, f.audit.actions)
}

func TestHealthCheckDetectsUnreachable(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-a", credential.HealthHealthy, true)
	f.platform.BadSecrets["secret-cred-a"] = true

	results, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, credential.HealthHealthy, results[0].Previous)
	assert.Equal(t, credential.HealthUnreachable, results[0].Current)
	assert.True(t, results[0].Changed)
	assert.NotEmpty(t, results[0].Message)

	stored, err := f.credRepo.GetByCredentialID(context.Background(), "cred-a")
	require.NoError(t, err)
	assert.Equal(t, credential.HealthUnreachable, stored.HealthStatus)
	assert.NotNil(t, stored.LastHealthCheckAt)

	require.Len(t, f.audit.actions, 1)
	assert.Equal(t, common_models.AuditActionHealthCheck, f.audit.actions[0])
}

func TestHealthCheckDetectsDegraded(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-a", credential.HealthHealthy, true)
	f.platform.DegradedSecrets["secret-cred-a"] = true

	results, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, credential.HealthDegraded, results[0].Current)
	assert.True(t, results[0].Changed)
}

func TestHealthCheckRecovery(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-a", credential.HealthUnreachable, true)

	results, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, credential.HealthUnreachable, results[0].Previous)
	assert.Equal(t, credential.HealthHealthy, results[0].Current)
	assert.True(t, results[0].Changed)
}

func TestHealthCheckUnknownToHealthyIsAChange(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-a", credential.HealthUnknown, true)

	results, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed)
}

func TestHealthCheckSkipsInactiveCredentials(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-live", credential.HealthHealthy, true)
	f.addCredential("cred-retired", credential.HealthHealthy, false)

	results, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cred-live", results[0].CredentialID)
}

func TestHealthCheckNeverTouchesAssignments(t *testing.T) {
	f := newHealthFixture()
	f.addCredential("cred-a", credential.HealthHealthy, true)
	f.credRepo.AdjustCounts(context.Background(), "cred-a", 4, 2)
	f.platform.BadSecrets["secret-cred-a"] = true

	_, err := f.svc.PerformHealthChecks(context.Background())
	require.NoError(t, err)

	stored, err := f.credRepo.GetByCredentialID(context.Background(), "cred-a")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.AssignedAgentCount)
	assert.Equal(t, 2, stored.AssignedUserCount)
}
