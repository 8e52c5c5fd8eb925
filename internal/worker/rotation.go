package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/internal/infrastructure/obfuscate"
	"github.com/rawasy/aderlee/internal/telemetry"
)

var (
	// ErrRotationInProgress rejects a second rotation while one is running.
	ErrRotationInProgress = errors.New("rotation already in progress")

	// ErrRotationAborted reports a pass that left rows behind; the live
	// master stays untouched and the operator can simply re-run.
	ErrRotationAborted = errors.New("rotation aborted, master unchanged")

	// ErrSameMaster rejects a rotation to the master already in place.
	ErrSameMaster = errors.New("new master matches the current one")
)

// Report summarizes one rotation pass.
type Report struct {
	Total     int `json:"total"`     // rows in the store when the pass began
	Rotated   int `json:"rotated"`   // rows re-encoded under the new master
	Skipped   int `json:"skipped"`   // rows not keyed under the outgoing master, or deleted mid-pass
	Conflicts int `json:"conflicts"` // rows that kept moving and were left behind
	Failed    int `json:"failed"`    // rows with hard decode or storage failures
}

// RotationWorker re-encodes every stored payload from the live master
// secret to a new one, then swaps the live keying.
//
// 🛡️ The swap only lands after a clean pass plus a verification sweep:
// a single row still keyed under the old master would otherwise be
// stranded unreadable behind the new one. A dirty pass aborts with the
// store intact; re-running converges because already-rotated rows are
// skipped.
type RotationWorker struct {
	repo    domain.SecretRepository
	live    *obfuscate.Service
	hub     *telemetry.Hub
	alerts  domain.AlertRepository
	logger  *slog.Logger
	workers int // 🛡️ Limit concurrent re-encodes against the pool

	mu      sync.Mutex
	running bool
}

func NewRotationWorker(
	repo domain.SecretRepository,
	live *obfuscate.Service,
	hub *telemetry.Hub,
	alerts domain.AlertRepository,
	logger *slog.Logger,
	workers int,
) *RotationWorker {
	if workers < 1 {
		workers = 8
	}
	return &RotationWorker{
		repo:    repo,
		live:    live,
		hub:     hub,
		alerts:  alerts,
		logger:  logger,
		workers: workers,
	}
}

// passState tracks counters plus the row versions the pass expects to
// see afterwards, so verification can tell "untouched since we rotated
// it" from "someone wrote here mid-pass" without re-probing payloads.
type passState struct {
	mu       sync.Mutex
	report   *Report
	expected map[uuid.UUID]int
}

func (p *passState) bump(counter *int) {
	p.mu.Lock()
	*counter++
	p.mu.Unlock()
}

func (p *passState) record(id uuid.UUID, version int) {
	p.mu.Lock()
	p.expected[id] = version
	p.mu.Unlock()
}

// Rotate runs one full rotation to newMaster. Only one rotation may be
// in flight at a time.
func (w *RotationWorker) Rotate(ctx context.Context, newMaster string) (*Report, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, ErrRotationInProgress
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	oldMaster := w.live.Master()
	if newMaster == oldMaster {
		return nil, ErrSameMaster
	}

	// Frozen key sets for the pass. The live service keeps serving the
	// old master until the swap at the very end.
	from := obfuscate.NewService(oldMaster)
	to := obfuscate.NewService(newMaster)

	secrets, err := w.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rotation: listing secrets: %w", err)
	}

	w.logger.Info("🔄 Master rotation started", slog.Int("rows", len(secrets)))

	state := &passState{
		report:   &Report{Total: len(secrets)},
		expected: make(map[uuid.UUID]int, len(secrets)),
	}
	w.rotatePass(ctx, from, to, secrets, state)

	report := state.report
	if report.Failed == 0 && report.Conflicts == 0 {
		w.verifySweep(ctx, from, state)
	}

	if report.Failed > 0 || report.Conflicts > 0 {
		w.logger.Error("Master rotation aborted",
			slog.Int("rotated", report.Rotated),
			slog.Int("conflicts", report.Conflicts),
			slog.Int("failed", report.Failed),
		)
		if w.alerts != nil {
			// Log to the action center; the operator re-runs from there.
			_ = w.alerts.CreateAlert(ctx, &domain.SystemAlert{
				Severity: domain.SeverityWarning,
				Category: domain.CategoryRotation,
				Message:  fmt.Sprintf("Master rotation aborted with %d conflicts and %d failures; old master left in place", report.Conflicts, report.Failed),
				Metadata: map[string]any{"rotated": report.Rotated, "total": report.Total},
			})
		}
		return report, ErrRotationAborted
	}

	// ✅ Clean pass: swap the live keying and tell every watcher.
	w.live.Rebind(newMaster)
	w.hub.Broadcast(telemetry.ChangeEvent{
		Op:   telemetry.OpRotate,
		Name: telemetry.AllSecrets,
		At:   time.Now(),
	})
	w.logger.Info("✅ Master rotation complete",
		slog.Int("rotated", report.Rotated),
		slog.Int("skipped", report.Skipped),
	)

	return report, nil
}

// rotatePass re-encodes the given rows with bounded concurrency.
func (w *RotationWorker) rotatePass(ctx context.Context, from, to *obfuscate.Service, secrets []domain.Secret, state *passState) {
	sem := make(chan struct{}, w.workers)
	var wg sync.WaitGroup

	for _, secret := range secrets {
		wg.Add(1)

		go func(s domain.Secret) {
			defer wg.Done()

			sem <- struct{}{} // Acquire
			defer func() { <-sem }()

			w.rotateRow(ctx, from, to, s, state)
		}(secret)
	}
	wg.Wait()
}

// rotateRow moves one row to the new keying under an optimistic version
// guard, re-reading and retrying when a concurrent write bumps the row.
func (w *RotationWorker) rotateRow(ctx context.Context, from, to *obfuscate.Service, s domain.Secret, state *passState) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		// Rows not keyed under the outgoing master (hand-seeded
		// plaintext, foreign payloads) pass through rotation verbatim.
		if !from.Recognizes(ctx, s.Name, s.Encoded) {
			state.record(s.ID, s.Version)
			state.bump(&state.report.Skipped)
			return
		}

		plaintext, err := from.DecodeValue(ctx, s.Name, s.Encoded)
		if err != nil {
			w.logger.Error("Rotation decode failure", slog.String("name", s.Name))
			state.bump(&state.report.Failed)
			return
		}

		encoded, err := to.EncodeValue(ctx, s.Name, plaintext)
		if err != nil {
			state.bump(&state.report.Failed)
			return
		}

		err = w.repo.UpdateEncoded(ctx, s.ID, encoded, s.Version)
		if err == nil {
			state.record(s.ID, s.Version+1)
			state.bump(&state.report.Rotated)
			return
		}
		if !errors.Is(err, domain.ErrConflict) {
			w.logger.Error("Rotation storage failure", slog.String("name", s.Name), slog.Any("error", err))
			state.bump(&state.report.Failed)
			return
		}

		// Version moved underneath us: re-read and try again.
		fresh, err := w.repo.GetByName(ctx, s.Name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				state.bump(&state.report.Skipped) // deleted mid-pass
				return
			}
			state.bump(&state.report.Failed)
			return
		}
		s = *fresh
	}

	w.logger.Warn("Rotation gave up on a row that kept moving", slog.String("name", s.Name))
	state.bump(&state.report.Conflicts)
}

// verifySweep re-lists the store and flags rows touched after the pass
// handled them, plus rows created mid-pass. Untouched rows are trusted
// by version alone: re-probing rotated payloads with the old key set
// could misfire on the checksum and wedge rotation permanently, so only
// new or moved rows get probed, and those genuinely carry fresh
// old-master payloads when dirty.
func (w *RotationWorker) verifySweep(ctx context.Context, from *obfuscate.Service, state *passState) {
	secrets, err := w.repo.List(ctx)
	if err != nil {
		w.logger.Error("Rotation verification failed to list secrets", slog.Any("error", err))
		state.report.Failed++
		return
	}

	for _, s := range secrets {
		expected, seen := state.expected[s.ID]
		if seen && s.Version == expected {
			continue
		}
		if from.Recognizes(ctx, s.Name, s.Encoded) {
			w.logger.Warn("Rotation verification found a row still on the old master", slog.String("name", s.Name))
			state.report.Conflicts++
		}
	}
}
