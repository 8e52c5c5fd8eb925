package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rawasy/aderlee/internal/core/domain"
)

// IntegrityReport summarizes one verification sweep over the store.
type IntegrityReport struct {
	Checked     int `json:"checked"`
	Healthy     int `json:"healthy"`
	Passthrough int `json:"passthrough"`
	Suspect     int `json:"suspect"`
}

// IntegrityMonitor periodically verifies that every stored payload
// still decodes under the live keying. A row in the wire format that no
// longer decodes usually means a write raced a master rotation; the
// monitor cannot repair it, but it makes the damage visible while the
// old master is still around to recover with.
type IntegrityMonitor struct {
	repo        domain.SecretRepository
	obfuscator  domain.ObfuscationService
	alerts      domain.AlertRepository
	logger      *slog.Logger
	interval    time.Duration
	concurrency int // 🛡️ Bound the per-sweep hashing fan-out
}

func NewIntegrityMonitor(
	repo domain.SecretRepository,
	obfuscator domain.ObfuscationService,
	alerts domain.AlertRepository,
	logger *slog.Logger,
	interval time.Duration,
) *IntegrityMonitor {
	return &IntegrityMonitor{
		repo:        repo,
		obfuscator:  obfuscator,
		alerts:      alerts,
		logger:      logger,
		interval:    interval,
		concurrency: 10,
	}
}

func (m *IntegrityMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.performIntegritySweep(ctx)
		}
	}
}

func (m *IntegrityMonitor) performIntegritySweep(ctx context.Context) {
	report, err := m.CheckNow(ctx)
	if err != nil {
		m.logger.Error("Integrity sweep failed", slog.Any("error", err))
		return
	}

	if report.Suspect > 0 {
		m.logger.Error("🚨 Integrity sweep found unreadable payloads",
			slog.Int("suspect", report.Suspect),
			slog.Int("checked", report.Checked),
		)
		return
	}
	m.logger.Info("Integrity sweep clean",
		slog.Int("checked", report.Checked),
		slog.Int("passthrough", report.Passthrough),
	)
}

// CheckNow runs a single sweep and classifies every row: healthy rows
// decode under the live keying, passthrough rows never carried the wire
// format, suspect rows look encoded but no longer decode.
func (m *IntegrityMonitor) CheckNow(ctx context.Context) (*IntegrityReport, error) {
	secrets, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity: listing secrets: %w", err)
	}

	report := &IntegrityReport{Checked: len(secrets)}
	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, secret := range secrets {
		wg.Add(1)

		go func(s domain.Secret) {
			defer wg.Done()

			sem <- struct{}{} // Acquire
			defer func() { <-sem }()

			switch {
			case m.obfuscator.Recognizes(ctx, s.Name, s.Encoded):
				mu.Lock()
				report.Healthy++
				mu.Unlock()
			case looksLikeWireFormat(s.Encoded):
				m.logger.Warn("Integrity alert: payload no longer decodes",
					slog.String("name", s.Name),
					slog.Int("version", s.Version),
				)
				m.fileAlert(ctx, s)
				mu.Lock()
				report.Suspect++
				mu.Unlock()
			default:
				mu.Lock()
				report.Passthrough++
				mu.Unlock()
			}
		}(secret)
	}
	wg.Wait()

	return report, nil
}

// fileAlert records a suspect row in the action center. Filing is
// best-effort: a dead alert store must not stop the sweep itself.
func (m *IntegrityMonitor) fileAlert(ctx context.Context, s domain.Secret) {
	if m.alerts == nil {
		return
	}
	err := m.alerts.CreateAlert(ctx, &domain.SystemAlert{
		Severity:   domain.SeverityCritical,
		Category:   domain.CategoryIntegrity,
		ResourceID: s.Name,
		Message:    fmt.Sprintf("Stored payload for %q no longer decodes under the live keys", s.Name),
		Metadata:   map[string]any{"version": s.Version, "payload_length": len(s.Encoded)},
	})
	if err != nil {
		m.logger.Error("Failed to file integrity alert",
			slog.String("name", s.Name),
			slog.Any("error", err),
		)
	}
}

// looksLikeWireFormat reports whether s has the codec's shape: an even
// run of at least two hex digits. Shape alone says nothing about the
// keying; it only separates "was probably encoded once" from
// "deliberate plaintext".
func looksLikeWireFormat(s string) bool {
	if len(s) < 2 || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
