package migration

import (
	"context"
	"sort"
	"sync"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/resource"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memCredRepo struct {
	mu    sync.Mutex
	creds map[string]*credential.Credential
}

func newMemCredRepo() *memCredRepo {
	return &memCredRepo{creds: make(map[string]*credential.Credential)}
}

func (m *memCredRepo) Create(ctx context.Context, cred *credential.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	if cred.HealthStatus == "" {
		cred.HealthStatus = credential.HealthUnknown
	}
	cp := *cred
	m.creds[cred.CredentialID] = &cp
	return nil
}

func (m *memCredRepo) GetByCredentialID(ctx context.Context, credentialID string) (*credential.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credentialID]
	if !ok {
		return nil, nil
	}
	cp := *cred
	return &cp, nil
}

func (m *memCredRepo) List(ctx context.Context, filter map[string]interface{}) ([]credential.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []credential.Credential{}
	for _, cred := range m.creds {
		out = append(out, *cred)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memCredRepo) ListActive(ctx context.Context) ([]credential.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []credential.Credential{}
	for _, cred := range m.creds {
		if cred.IsActive {
			out = append(out, *cred)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CredentialID < out[j].CredentialID })
	return out, nil
}

func (m *memCredRepo) ListSelectable(ctx context.Context, excludeCredentialID string) ([]credential.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []credential.Credential{}
	for _, cred := range m.creds {
		if cred.CredentialID == excludeCredentialID {
			continue
		}
		if cred.Selectable() {
			out = append(out, *cred)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AssignedAgentCount != b.AssignedAgentCount {
			return a.AssignedAgentCount < b.AssignedAgentCount
		}
		if a.AssignedUserCount != b.AssignedUserCount {
			return a.AssignedUserCount < b.AssignedUserCount
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (m *memCredRepo) Update(ctx context.Context, credentialID string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credentialID]
	if !ok {
		return nil
	}
	if v, ok := updates["label"].(string); ok {
		cred.Label = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		cred.IsActive = v
	}
	if v, ok := updates["over_capacity"].(bool); ok {
		cred.OverCapacity = v
	}
	if v, ok := updates["max_resource_threshold"].(int); ok {
		cred.MaxResourceThreshold = v
	}
	cred.UpdatedAt = time.Now()
	return nil
}

func (m *memCredRepo) UpdateHealth(ctx context.Context, credentialID string, status credential.HealthStatus, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credentialID]
	if !ok {
		return nil
	}
	cred.HealthStatus = status
	cred.LastHealthCheckAt = &checkedAt
	return nil
}

func (m *memCredRepo) AdjustCounts(ctx context.Context, credentialID string, agentDelta, userDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credentialID]
	if !ok {
		return nil
	}
	cred.AssignedAgentCount += agentDelta
	cred.AssignedUserCount += userDelta
	return nil
}

func (m *memCredRepo) SetCounts(ctx context.Context, credentialID string, agentCount, userCount int, overCapacity bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credentialID]
	if !ok {
		return nil
	}
	cred.AssignedAgentCount = agentCount
	cred.AssignedUserCount = userCount
	cred.OverCapacity = overCapacity
	return nil
}

func (m *memCredRepo) Delete(ctx context.Context, credentialID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, credentialID)
	return nil
}

func (m *memCredRepo) EnsureIndexes(ctx context.Context) error { return nil }

type memResourceRepo struct {
	mu        sync.Mutex
	resources map[string]*resource.Resource
}

func newMemResourceRepo() *memResourceRepo {
	return &memResourceRepo{resources: make(map[string]*resource.Resource)}
}

func (m *memResourceRepo) Create(ctx context.Context, res *resource.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now
	cp := *res
	m.resources[res.ResourceID] = &cp
	return nil
}

func (m *memResourceRepo) GetByResourceID(ctx context.Context, resourceID string) (*resource.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.resources[resourceID]
	if !ok {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

func (m *memResourceRepo) List(ctx context.Context, filter map[string]interface{}) ([]resource.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []resource.Resource{}
	for _, res := range m.resources {
		if kind, ok := filter["kind"].(string); ok && string(res.Kind) != kind {
			continue
		}
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func (m *memResourceRepo) ListByCredential(ctx context.Context, credentialID string) ([]resource.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []resource.Resource{}
	for _, res := range m.resources {
		if res.AssignedCredentialID == credentialID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memResourceRepo) ListAgentsByOwner(ctx context.Context, ownerID string) ([]resource.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []resource.Resource{}
	for _, res := range m.resources {
		if res.Kind == resource.KindAgent && res.OwnerID == ownerID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memResourceRepo) UpdateAssignment(ctx context.Context, resourceID, credentialID, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.resources[resourceID]
	if !ok {
		return nil
	}
	res.AssignedCredentialID = credentialID
	res.RemoteID = remoteID
	res.UpdatedAt = time.Now()
	return nil
}

func (m *memResourceRepo) CountByCredential(ctx context.Context, credentialID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, res := range m.resources {
		if res.AssignedCredentialID == credentialID {
			n++
		}
	}
	return n, nil
}

func (m *memResourceRepo) CountByOwnerAndCredential(ctx context.Context, ownerID, credentialID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, res := range m.resources {
		if res.OwnerID == ownerID && res.AssignedCredentialID == credentialID {
			n++
		}
	}
	return n, nil
}

func (m *memResourceRepo) Delete(ctx context.Context, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resources, resourceID)
	return nil
}

func (m *memResourceRepo) EnsureIndexes(ctx context.Context) error { return nil }

type memConnRepo struct {
	mu    sync.Mutex
	conns map[string]*resource.Connection
}

func newMemConnRepo() *memConnRepo {
	return &memConnRepo{conns: make(map[string]*resource.Connection)}
}

func (m *memConnRepo) Create(ctx context.Context, conn *resource.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn.CreatedAt = time.Now()
	cp := *conn
	m.conns[conn.PhoneNumberID] = &cp
	return nil
}

func (m *memConnRepo) List(ctx context.Context) ([]resource.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []resource.Connection{}
	for _, conn := range m.conns {
		out = append(out, *conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumberID < out[j].PhoneNumberID })
	return out, nil
}

func (m *memConnRepo) GetByPhoneNumber(ctx context.Context, phoneNumberID string) (*resource.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[phoneNumberID]
	if !ok {
		return nil, nil
	}
	cp := *conn
	return &cp, nil
}

func (m *memConnRepo) ListByAgent(ctx context.Context, agentID string) ([]resource.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []resource.Connection{}
	for _, conn := range m.conns {
		if conn.AgentID == agentID {
			out = append(out, *conn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumberID < out[j].PhoneNumberID })
	return out, nil
}

func (m *memConnRepo) Delete(ctx context.Context, phoneNumberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, phoneNumberID)
	return nil
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []*MigrationAttempt
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{}
}

func (m *memAttemptRepo) Create(ctx context.Context, attempt *MigrationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt.ID = primitive.NewObjectID()
	now := time.Now()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	cp := *attempt
	m.attempts = append(m.attempts, &cp)
	return nil
}

func (m *memAttemptRepo) GetByID(ctx context.Context, id string) (*MigrationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID.Hex() == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAttemptRepo) Update(ctx context.Context, attempt *MigrationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.attempts {
		if a.ID == attempt.ID {
			attempt.UpdatedAt = time.Now()
			cp := *attempt
			m.attempts[i] = &cp
			return nil
		}
	}
	return nil
}

func (m *memAttemptRepo) ListReplayable(ctx context.Context, maxAttempts int, limit int64) ([]MigrationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []MigrationAttempt{}
	for _, a := range m.attempts {
		if a.Status == StatusFailed && a.AttemptCount < maxAttempts {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAttemptRepo) SupersedeOlder(ctx context.Context, resourceID string, newerThan primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ResourceID != resourceID || a.ID == newerThan {
			continue
		}
		if a.Status == StatusPending || a.Status == StatusFailed {
			a.Status = StatusSuperseded
			a.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *memAttemptRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, a := range m.attempts {
		counts[string(a.Status)]++
	}
	return counts, nil
}

func (m *memAttemptRepo) OldestReplayable(ctx context.Context, maxAttempts int) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *time.Time
	for _, a := range m.attempts {
		if a.Status != StatusFailed || a.AttemptCount >= maxAttempts {
			continue
		}
		t := a.CreatedAt
		if oldest == nil || t.Before(*oldest) {
			oldest = &t
		}
	}
	return oldest, nil
}

func (m *memAttemptRepo) List(ctx context.Context, filter map[string]interface{}, limit int64) ([]MigrationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []MigrationAttempt{}
	for _, a := range m.attempts {
		if status, ok := filter["status"].(string); ok && string(a.Status) != status {
			continue
		}
		out = append(out, *a)
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAttemptRepo) all() []MigrationAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MigrationAttempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		out = append(out, *a)
	}
	return out
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (noopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return []common_models.AuditLog{}, nil
}
