package domain

import "context"

// ObfuscationService is the port through which the vault encodes and
// decodes payloads. Implementations bind the payload to the secret
// name, so a value copied under a different name fails its checksum.
type ObfuscationService interface {
	EncodeValue(ctx context.Context, name, plaintext string) (string, error)
	DecodeValue(ctx context.Context, name, encoded string) (string, error)

	// Recognizes reports whether the payload carries the wire format
	// and round-trips under the given name.
	Recognizes(ctx context.Context, name, payload string) bool
}
