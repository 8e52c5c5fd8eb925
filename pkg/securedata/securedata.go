// Package securedata implements a keyed, self-verifying obfuscation codec.
//
// Values are encoded to lowercase hexadecimal: a one-byte checksum prefix
// followed by the base64 form of the plaintext, XORed byte-by-byte against a
// key derived from the caller's secrets. The checksum lets Decode distinguish
// "wrong key or corrupted data" from "not our format", and IsEncoded probes a
// candidate string without ever failing.
//
// This is obfuscation, not encryption: the scheme is reversible by anyone who
// knows the algorithm and the key material. Use it to keep secrets out of
// casual sight (env files, config dumps), not to resist an adversary.
package securedata

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultKey is the secret applied when a Codec is built with no keys at all.
const DefaultKey = "KhaledKarman"

var (
	// ErrInvalidKey reports a construction-time problem with the supplied
	// secret key material.
	ErrInvalidKey = errors.New("securedata: secret key must be a non-empty string")

	// ErrInvalidInput reports encoded data that is structurally broken:
	// too short, odd length, non-hex characters, or an intermediate form
	// that does not survive base64/UTF-8 decoding.
	ErrInvalidInput = errors.New("securedata: invalid encoded data")

	// ErrChecksumMismatch reports well-formed encoded data whose embedded
	// checksum disagrees with the recomputed one. It signals a wrong key or
	// corruption rather than a foreign format.
	ErrChecksumMismatch = errors.New("securedata: incorrect key or corrupted data")
)

// Codec performs the reversible transform. The derived key is fixed at
// construction and never mutated, so a single Codec is safe for concurrent
// use without coordination.
type Codec struct {
	// key is the SHA-512 digest of the concatenated secrets, kept as its
	// 128-character lowercase hex rendering. The XOR step consumes the hex
	// characters themselves, not the raw digest bytes; changing that would
	// break compatibility with previously encoded values.
	key string
}

// New derives a Codec from one or more secret keys. Keys are concatenated in
// argument order with no separator before hashing, so New("ab", "c") and
// New("a", "bc") yield the same Codec. With no keys, DefaultKey is used.
//
// Every supplied key must be non-empty; otherwise New fails with a wrapped
// ErrInvalidKey.
func New(secretKeys ...string) (*Codec, error) {
	if len(secretKeys) == 0 {
		secretKeys = []string{DefaultKey}
	}

	var combined strings.Builder
	for i, key := range secretKeys {
		if key == "" {
			return nil, fmt.Errorf("%w (key %d of %d is empty)", ErrInvalidKey, i+1, len(secretKeys))
		}
		combined.WriteString(key)
	}

	digest := sha512.Sum512([]byte(combined.String()))
	return &Codec{key: hex.EncodeToString(digest[:])}, nil
}

// Key returns the derived key: the SHA-512 digest of the concatenated
// secrets as 128 lowercase hex characters. Two Codecs with equal ordered
// secrets always report the same key.
func (c *Codec) Key() string {
	return c.key
}

// Encode obfuscates plaintext into the hex wire form. The empty string is a
// valid message and round-trips through Decode. Encode is total: it cannot
// fail for any string input.
//
// Wire layout: two lowercase hex digits of checksum, then two lowercase hex
// digits per byte of the base64 intermediate. Output length is always
// 2 + 2*len(base64(plaintext)).
func (c *Codec) Encode(plaintext string) string {
	intermediate := base64.StdEncoding.EncodeToString([]byte(plaintext))

	body := make([]byte, len(intermediate))
	var sum int
	for i := 0; i < len(intermediate); i++ {
		sum += int(intermediate[i])
		body[i] = intermediate[i] ^ c.key[i%len(c.key)]
	}

	return hex.EncodeToString([]byte{byte(sum)}) + hex.EncodeToString(body)
}

// Decode reverses Encode, verifying the checksum before trusting the
// recovered intermediate form.
//
// Failures are terminal and never partial: ErrInvalidInput for structural
// problems (length, non-hex characters, broken base64/UTF-8 after the XOR
// step) and ErrChecksumMismatch when the stored checksum disagrees with the
// recomputed one. The checksum is one byte wide, so a foreign hex string
// slips past it with probability about 1/256; callers needing a safe probe
// should go through IsEncoded.
func (c *Codec) Decode(encoded string) (string, error) {
	if len(encoded) < 2 || len(encoded)%2 != 0 {
		return "", fmt.Errorf("%w: length must be even and at least 2", ErrInvalidInput)
	}

	// Checksum prefix and XORed body in one pass; hex is accepted in either
	// case even though Encode only ever emits lowercase.
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: data contains non-hex characters", ErrInvalidInput)
	}
	storedChecksum, body := raw[0], raw[1:]

	intermediate := make([]byte, len(body))
	var sum int
	for k, b := range body {
		intermediate[k] = b ^ c.key[k%len(c.key)]
		sum += int(intermediate[k])
	}

	if byte(sum) != storedChecksum {
		return "", ErrChecksumMismatch
	}

	plaintext, err := base64.StdEncoding.DecodeString(string(intermediate))
	if err != nil {
		return "", fmt.Errorf("%w: base64 decoding failed", ErrInvalidInput)
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: decoded bytes are not valid UTF-8", ErrInvalidInput)
	}

	return string(plaintext), nil
}

// IsEncoded reports whether candidate looks like output of this Codec's
// Encode. It never fails: malformed input simply yields false.
//
// The check is a heuristic, not a proof. A string that was never produced by
// Encode can pass the format checks and, roughly once in 256 tries, the
// checksum as well. Callers chaining "decode if recognized, else pass the
// value through" must tolerate that residual false-positive rate.
func (c *Codec) IsEncoded(candidate string) bool {
	if len(candidate) < 2 || len(candidate)%2 != 0 {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		if !isHexDigit(candidate[i]) {
			return false
		}
	}

	_, err := c.Decode(candidate)
	return err == nil
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
