package retryqueue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	common_models "voicepool/internal/common/models"
	"voicepool/internal/features/migration"
	"voicepool/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type queueAttemptRepo struct {
	mu       sync.Mutex
	attempts []*migration.MigrationAttempt
}

func (q *queueAttemptRepo) Create(ctx context.Context, attempt *migration.MigrationAttempt) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	attempt.ID = primitive.NewObjectID()
	attempt.CreatedAt = time.Now()
	cp := *attempt
	q.attempts = append(q.attempts, &cp)
	return nil
}

func (q *queueAttemptRepo) GetByID(ctx context.Context, id string) (*migration.MigrationAttempt, error) {
	return nil, nil
}

func (q *queueAttemptRepo) Update(ctx context.Context, attempt *migration.MigrationAttempt) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.attempts {
		if a.ID == attempt.ID {
			cp := *attempt
			q.attempts[i] = &cp
		}
	}
	return nil
}

func (q *queueAttemptRepo) ListReplayable(ctx context.Context, maxAttempts int, limit int64) ([]migration.MigrationAttempt, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []migration.MigrationAttempt{}
	for _, a := range q.attempts {
		if a.Status == migration.StatusFailed && a.AttemptCount < maxAttempts {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *queueAttemptRepo) SupersedeOlder(ctx context.Context, resourceID string, newerThan primitive.ObjectID) error {
	return nil
}

func (q *queueAttemptRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := make(map[string]int64)
	for _, a := range q.attempts {
		counts[string(a.Status)]++
	}
	return counts, nil
}

func (q *queueAttemptRepo) OldestReplayable(ctx context.Context, maxAttempts int) (*time.Time, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var oldest *time.Time
	for _, a := range q.attempts {
		if a.Status != migration.StatusFailed || a.AttemptCount >= maxAttempts {
			continue
		}
		t := a.CreatedAt
		if oldest == nil || t.Before(*oldest) {
			oldest = &t
		}
	}
	return oldest, nil
}

func (q *queueAttemptRepo) List(ctx context.Context, filter map[string]interface{}, limit int64) ([]migration.MigrationAttempt, error) {
	return nil, nil
}

// scriptedMigrator replays attempts against a per-resource outcome table.
type scriptedMigrator struct {
	repo *queueAttemptRepo
	// failing resources keep failing on replay
	failing map[string]bool
	// replayed records the order resources were replayed in
	replayed []string
}

func (s *scriptedMigrator) MaxAttempts() int { return 3 }

func (s *scriptedMigrator) MigrateResource(ctx context.Context, resourceID, destCredentialID string, opts migration.MigrateOptions) (*migration.MigrationResult, error) {
	return nil, errors.New("not used in these tests")
}

func (s *scriptedMigrator) MigrateAllMismatched(ctx context.Context) (*common_models.BatchSummary, error) {
	return nil, errors.New("not used in these tests")
}

func (s *scriptedMigrator) MigrateAgentPhoneNumbers(ctx context.Context, agentID string) (*common_models.BatchSummary, error) {
	return nil, errors.New("not used in these tests")
}

func (s *scriptedMigrator) ReplayAttempt(ctx context.Context, attempt *migration.MigrationAttempt) (*migration.MigrationResult, error) {
	s.replayed = append(s.replayed, attempt.ResourceID)

	if s.failing[attempt.ResourceID] {
		attempt.Status = migration.StatusFailed
		attempt.AttemptCount++
		attempt.LastError = "still failing"
		s.repo.Update(ctx, attempt)
		return nil, errors.New("still failing")
	}

	attempt.Status = migration.StatusSucceeded
	attempt.AttemptCount++
	s.repo.Update(ctx, attempt)
	return &migration.MigrationResult{ResourceID: attempt.ResourceID, Migrated: true}, nil
}

type quietAudit struct{}

func (quietAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (quietAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newQueueFixture(failing map[string]bool) (RetryQueueService, *queueAttemptRepo) {
	repo := &queueAttemptRepo{}
	migrator := &scriptedMigrator{repo: repo, failing: failing}
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	svc := NewRetryQueueService(repo, migrator, quietAudit{}, m, zap.NewNop())
	return svc, repo
}

func enqueueFailed(t *testing.T, repo *queueAttemptRepo, resourceID string, attemptCount int) {
	t.Helper()
	err := repo.Create(context.Background(), &migration.MigrationAttempt{
		ResourceID:       resourceID,
		DestCredentialID: "cred-dest",
		Status:           migration.StatusFailed,
		AttemptCount:     attemptCount,
		LastError:        "initial failure",
	})
	require.NoError(t, err)
}

func TestProcessQueueReplaysEverythingOnce(t *testing.T) {
	svc, repo := newQueueFixture(nil)
	ctx := context.Background()

	enqueueFailed(t, repo, "phone-1", 1)
	enqueueFailed(t, repo, "phone-2", 1)

	summary, err := svc.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	queued, err := repo.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestProcessQueueSecondPassIsNoOp(t *testing.T) {
	svc, repo := newQueueFixture(nil)
	ctx := context.Background()

	enqueueFailed(t, repo, "phone-1", 1)

	first, err := svc.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)

	second, err := svc.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 0, second.Failed)
}

func TestProcessQueueIsolatesFailures(t *testing.T) {
	svc, repo := newQueueFixture(map[string]bool{"phone-bad": true})
	ctx := context.Background()

	enqueueFailed(t, repo, "phone-bad", 1)
	enqueueFailed(t, repo, "phone-good", 1)

	summary, err := svc.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "phone-bad", summary.Errors[0].ResourceID)

	// The failing attempt stays queued for the next pass.
	queued, err := repo.ListReplayable(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "phone-bad", queued[0].ResourceID)
}

func TestProcessQueueSkipsExhaustedAttempts(t *testing.T) {
	svc, repo := newQueueFixture(nil)
	ctx := context.Background()

	enqueueFailed(t, repo, "phone-spent", 3)
	enqueueFailed(t, repo, "phone-fresh", 1)

	summary, err := svc.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestStatusReportsDepthAndOldest(t *testing.T) {
	svc, repo := newQueueFixture(nil)
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.Depth)
	assert.Nil(t, status.OldestQueued)

	enqueueFailed(t, repo, "phone-1", 1)
	enqueueFailed(t, repo, "phone-2", 2)
	enqueueFailed(t, repo, "phone-spent", 3)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.Depth)
	assert.Equal(t, int64(3), status.Failed)
	assert.Equal(t, int64(1), status.Exhausted)
	assert.Equal(t, 3, status.MaxAttempts)
	assert.NotNil(t, status.OldestQueued)
}
