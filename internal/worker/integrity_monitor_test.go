package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/internal/infrastructure/obfuscate"
	"github.com/rawasy/aderlee/internal/worker"
)

func TestIntegrityMonitor_ClassifiesRows(t *testing.T) {
	repo := newFakeRepo()
	live := obfuscate.NewService("rotated-master")
	ctx := t.Context()

	// Healthy: decodes under the live keying.
	healthy, err := live.EncodeValue(ctx, "api/token", "tok_live_9x8y")
	require.NoError(t, err)
	repo.seed("api/token", healthy)

	// Passthrough: hand-seeded plaintext, never carried the wire format.
	repo.seed("legacy/key", "plain-value")

	// Suspect: hunter2 keyed under a master the vault no longer holds.
	repo.seed("db/password", "1c037d66135477654078020f05")

	alerts := &fakeAlertRepo{}
	monitor := worker.NewIntegrityMonitor(repo, live, alerts, testLogger(), time.Hour)
	report, err := monitor.CheckNow(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Healthy)
	assert.Equal(t, 1, report.Passthrough)
	assert.Equal(t, 1, report.Suspect)

	// Only the suspect row lands in the action center.
	filed := alerts.filed()
	require.Len(t, filed, 1)
	assert.Equal(t, domain.CategoryIntegrity, filed[0].Category)
	assert.Equal(t, domain.SeverityCritical, filed[0].Severity)
	assert.Equal(t, "db/password", filed[0].ResourceID)
}

func TestIntegrityMonitor_EmptyStore(t *testing.T) {
	monitor := worker.NewIntegrityMonitor(newFakeRepo(), obfuscate.NewService("m"), &fakeAlertRepo{}, testLogger(), time.Hour)

	report, err := monitor.CheckNow(t.Context())
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

func TestIntegrityMonitor_StartStopsOnCancel(t *testing.T) {
	monitor := worker.NewIntegrityMonitor(newFakeRepo(), obfuscate.NewService("m"), &fakeAlertRepo{}, testLogger(), time.Hour)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	done := make(chan struct{})
	go func() {
		monitor.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
