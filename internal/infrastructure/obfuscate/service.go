package obfuscate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rawasy/aderlee/pkg/securedata"
)

// Service turns the keyed codec into the vault's obfuscation backend.
// Every payload is keyed with [master secret, secret name], so a value
// copied under a different name fails its checksum on the way back out.
type Service struct {
	// 🛡️ The master secret is swapped in place during rotation, so all
	// reads go through the lock instead of caching a codec per name.
	mu     sync.RWMutex
	master string
}

// NewService builds the backend around the given master secret. An
// empty master is allowed: payloads are then keyed by name alone.
func NewService(masterSecret string) *Service {
	return &Service{master: masterSecret}
}

// Master reports the secret currently keying new payloads.
func (s *Service) Master() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.master
}

// Rebind swaps the master secret in place. Payloads keyed under the
// previous master stop decoding the moment the swap lands, so the
// rotation worker calls this only after re-encoding every stored row.
func (s *Service) Rebind(masterSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.master = masterSecret
}

func (s *Service) codec(name string) (*securedata.Codec, error) {
	master := s.Master()
	if master == "" {
		return securedata.New(name)
	}
	return securedata.New(master, name)
}

func (s *Service) EncodeValue(ctx context.Context, name, plaintext string) (string, error) {
	codec, err := s.codec(name)
	if err != nil {
		return "", fmt.Errorf("obfuscate: deriving codec for %q: %w", name, err)
	}
	return codec.Encode(plaintext), nil
}

func (s *Service) DecodeValue(ctx context.Context, name, encoded string) (string, error) {
	codec, err := s.codec(name)
	if err != nil {
		return "", fmt.Errorf("obfuscate: deriving codec for %q: %w", name, err)
	}
	plaintext, err := codec.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("obfuscate: decoding %q: %w", name, err)
	}
	return plaintext, nil
}

// Recognizes reports whether payload carries the wire format and
// round-trips under name. Malformed input simply yields false.
func (s *Service) Recognizes(ctx context.Context, name, payload string) bool {
	codec, err := s.codec(name)
	if err != nil {
		return false
	}
	return codec.IsEncoded(payload)
}
