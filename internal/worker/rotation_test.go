package worker_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/internal/infrastructure/obfuscate"
	"github.com/rawasy/aderlee/internal/telemetry"
	"github.com/rawasy/aderlee/internal/worker"
)

// fakeRepo is an in-memory SecretRepository with hooks for forcing the
// races the rotation worker has to survive.
type fakeRepo struct {
	mu      sync.Mutex
	secrets map[string]*domain.Secret

	// forcedConflicts[name] makes that row's next UpdateEncoded calls
	// fail with ErrConflict until the counter runs out.
	forcedConflicts map[string]int

	// onUpdated runs inside the lock right after a successful
	// UpdateEncoded, letting tests emulate writes landing mid-pass.
	onUpdated func(s *domain.Secret)

	// listGate, when non-nil, blocks List until the channel is closed;
	// listEntered reports that a caller reached the gate.
	listGate    chan struct{}
	listEntered chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		secrets:         make(map[string]*domain.Secret),
		forcedConflicts: make(map[string]int),
	}
}

func (r *fakeRepo) seed(name, encoded string) *domain.Secret {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &domain.Secret{
		ID:        uuid.New(),
		Name:      name,
		Encoded:   encoded,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.secrets[name] = s
	return s
}

func (r *fakeRepo) Upsert(ctx context.Context, secret *domain.Secret) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.secrets[secret.Name]; ok {
		existing.Encoded = secret.Encoded
		existing.Version++
		existing.UpdatedAt = time.Now()
		*secret = *existing
		return nil
	}

	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}
	secret.Version = 1
	stored := *secret
	r.secrets[secret.Name] = &stored
	return nil
}

func (r *fakeRepo) GetByName(ctx context.Context, name string) (*domain.Secret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.secrets[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]domain.Secret, error) {
	if r.listGate != nil {
		if r.listEntered != nil {
			select {
			case r.listEntered <- struct{}{}:
			default:
			}
		}
		<-r.listGate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.secrets))
	for name := range r.secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.Secret, 0, len(names))
	for _, name := range names {
		out = append(out, *r.secrets[name])
	}
	return out, nil
}

func (r *fakeRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.secrets[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.secrets, name)
	return nil
}

func (r *fakeRepo) UpdateEncoded(ctx context.Context, id uuid.UUID, encoded string, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.secrets {
		if s.ID != id {
			continue
		}
		if left := r.forcedConflicts[s.Name]; left > 0 {
			r.forcedConflicts[s.Name] = left - 1
			return domain.ErrConflict
		}
		if s.Version != expectedVersion {
			return domain.ErrConflict
		}
		s.Encoded = encoded
		s.Version++
		s.UpdatedAt = time.Now()
		if r.onUpdated != nil {
			r.onUpdated(s)
		}
		return nil
	}
	return domain.ErrConflict
}

// fakeAlertRepo captures filed alerts in memory.
type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []domain.SystemAlert
}

func (a *fakeAlertRepo) CreateAlert(ctx context.Context, alert *domain.SystemAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	alert.ID = uuid.New()
	alert.CreatedAt = time.Now()
	a.alerts = append(a.alerts, *alert)
	return nil
}

func (a *fakeAlertRepo) GetFilteredAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.SystemAlert, int, error) {
	out := a.filed()
	return out, len(out), nil
}

func (a *fakeAlertRepo) ResolveAlert(ctx context.Context, alertID uuid.UUID, resolvedBy string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.alerts {
		if a.alerts[i].ID == alertID && !a.alerts[i].IsResolved {
			a.alerts[i].IsResolved = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (a *fakeAlertRepo) filed() []domain.SystemAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.SystemAlert(nil), a.alerts...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newRotationFixture(repo *fakeRepo, master string) (*worker.RotationWorker, *obfuscate.Service, *telemetry.Hub, *fakeAlertRepo) {
	live := obfuscate.NewService(master)
	hub := telemetry.NewHub()
	alerts := &fakeAlertRepo{}
	return worker.NewRotationWorker(repo, live, hub, alerts, testLogger(), 4), live, hub, alerts
}

func TestRotationWorker_RotatesEveryRow(t *testing.T) {
	repo := newFakeRepo()
	rotWorker, live, hub, alerts := newRotationFixture(repo, "old-master")
	ctx := t.Context()

	old := obfuscate.NewService("old-master")
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("app/secret-%02d", i)
		encoded, err := old.EncodeValue(ctx, name, fmt.Sprintf("value-%02d", i))
		require.NoError(t, err)
		repo.seed(name, encoded)
	}

	events := hub.Subscribe(telemetry.AllSecrets)

	report, err := rotWorker.Rotate(ctx, "new-master")
	require.NoError(t, err)
	assert.Equal(t, 20, report.Total)
	assert.Equal(t, 20, report.Rotated)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Conflicts)
	assert.Zero(t, report.Failed)

	// The live keying now serves the new master.
	assert.Equal(t, "new-master", live.Master())
	row, err := repo.GetByName(ctx, "app/secret-07")
	require.NoError(t, err)
	value, err := live.DecodeValue(ctx, "app/secret-07", row.Encoded)
	require.NoError(t, err)
	assert.Equal(t, "value-07", value)
	assert.Equal(t, 2, row.Version, "rotation bumps the row version")

	require.Len(t, events, 1)
	event := <-events
	assert.Equal(t, telemetry.OpRotate, event.Op)
	assert.Equal(t, telemetry.AllSecrets, event.Name)
	assert.Empty(t, alerts.filed(), "a clean rotation files no alerts")
}

func TestRotationWorker_SkipsForeignRows(t *testing.T) {
	repo := newFakeRepo()
	rotWorker, live, _, _ := newRotationFixture(repo, "old-master")
	ctx := t.Context()

	old := obfuscate.NewService("old-master")
	encoded, err := old.EncodeValue(ctx, "db/password", "hunter2")
	require.NoError(t, err)
	repo.seed("db/password", encoded)
	repo.seed("legacy/key", "plain-value")

	report, err := rotWorker.Rotate(ctx, "new-master")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rotated)
	assert.Equal(t, 1, report.Skipped)

	// The hand-seeded row rides through rotation untouched.
	row, err := repo.GetByName(ctx, "legacy/key")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", row.Encoded)
	assert.Equal(t, 1, row.Version)
	assert.Equal(t, "new-master", live.Master())
}

func TestRotationWorker_RetriesConflicts(t *testing.T) {
	repo := newFakeRepo()
	rotWorker, live, _, _ := newRotationFixture(repo, "old-master")
	ctx := t.Context()

	old := obfuscate.NewService("old-master")
	encoded, err := old.EncodeValue(ctx, "db/password", "hunter2")
	require.NoError(t, err)
	repo.seed("db/password", encoded)
	repo.forcedConflicts["db/password"] = 1

	report, err := rotWorker.Rotate(ctx, "new-master")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rotated)
	assert.Zero(t, report.Conflicts)
	assert.Equal(t, "new-master", live.Master())
}

func TestRotationWorker_AbortsWhenRowKeepsMoving(t *testing.T) {
	repo := newFakeRepo()
	rotWorker, live, _, alerts := newRotationFixture(repo, "old-master")
	ctx := t.Context()

	old := obfuscate.NewService("old-master")
	for _, name := range []string{"db/password", "api/token"} {
		encoded, err := old.EncodeValue(ctx, name, "value")
		require.NoError(t, err)
		repo.seed(name, encoded)
	}
	repo.forcedConflicts["db/password"] = 99

	report, err := rotWorker.Rotate(ctx, "new-master")
	assert.ErrorIs(t, err, worker.ErrRotationAborted)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Conflicts)

	// 🛡️ The live master must never move over a dirty store.
	assert.Equal(t, "old-master", live.Master())

	filed := alerts.filed()
	require.Len(t, filed, 1)
	assert.Equal(t, domain.CategoryRotation, filed[0].Category)
	assert.Equal(t, domain.SeverityWarning, filed[0].Severity)
}

func TestRotationWorker_VerifySweepCatchesMidPassWrites(t *testing.T) {
	repo := newFakeRepo()
	rotWorker, live, _, alerts := newRotationFixture(repo, "old-master")
	ctx := t.Context()

	old := obfuscate.NewService("old-master")
	encoded, err := old.EncodeValue(ctx, "db/password", "hunter2")
	require.NoError(t, err)
	repo.seed("db/password", encoded)

	// Emulate a client write landing right after the worker re-encoded
	// the row: the payload reverts to old-master keying, version moves.
	repo.onUpdated = func(s *domain.Secret) {
		s.Encoded = encoded
		s.Version++
	}

	report, err := rotWorker.Rotate(ctx, "new-master")
	assert.ErrorIs(t, err, worker.ErrRotationAborted)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, "old-master", live.Master())
	assert.Len(t, alerts.filed(), 1)
}

func TestRotationWorker_SameMasterRejected(t *testing.T) {
	rotWorker, _, _, _ := newRotationFixture(newFakeRepo(), "old-master")

	_, err := rotWorker.Rotate(t.Context(), "old-master")
	assert.ErrorIs(t, err, worker.ErrSameMaster)
}

func TestRotationWorker_SingleFlight(t *testing.T) {
	repo := newFakeRepo()
	repo.listGate = make(chan struct{})
	repo.listEntered = make(chan struct{}, 1)
	rotWorker, _, _, _ := newRotationFixture(repo, "old-master")
	ctx := t.Context()

	firstDone := make(chan error, 1)
	go func() {
		_, err := rotWorker.Rotate(ctx, "new-master")
		firstDone <- err
	}()

	// Wait for the first rotation to park inside List; by then it holds
	// the single-flight slot.
	<-repo.listEntered

	_, err := rotWorker.Rotate(ctx, "another-master")
	assert.ErrorIs(t, err, worker.ErrRotationInProgress)

	close(repo.listGate)
	require.NoError(t, <-firstDone)
}
