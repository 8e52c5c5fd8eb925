// Package environment reads process environment variables whose values may
// have been obfuscated with the securedata codec, decoding them transparently.
//
// Each variable gets its own key set: the instance-wide secret held in
// ADERLEE_SECURITY (when present) followed by the variable's own name. A
// value is only decoded after IsEncoded recognizes it; anything else is
// returned verbatim, so plaintext and encoded values can coexist in the same
// env file.
package environment

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/rawasy/aderlee/pkg/securedata"
)

// SecurityVar names the environment variable that carries the instance-wide
// secondary secret mixed into every per-variable key set.
const SecurityVar = "ADERLEE_SECURITY"

// Environment resolves env vars through the probe-then-decode contract.
type Environment struct {
	secret string
}

type options struct {
	dotenvPaths []string
	secret      string
	secretSet   bool
}

// Option adjusts how New builds an Environment.
type Option func(*options)

// WithDotenv loads the given env files before the instance secret is read.
// Variables already present in the process environment are never overridden.
func WithDotenv(paths ...string) Option {
	return func(o *options) {
		o.dotenvPaths = append(o.dotenvPaths, paths...)
	}
}

// WithSecret fixes the instance-wide secret instead of reading it from
// ADERLEE_SECURITY. An empty secret disables the instance-wide component.
func WithSecret(secret string) Option {
	return func(o *options) {
		o.secret = secret
		o.secretSet = true
	}
}

// New builds an Environment. Without options it mirrors the common dotenv
// bootstrap: a ./.env file is loaded when present (silently skipped when
// not), then the instance secret is captured from ADERLEE_SECURITY.
func New(opts ...Option) (*Environment, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.dotenvPaths) > 0 {
		if err := godotenv.Load(o.dotenvPaths...); err != nil {
			return nil, fmt.Errorf("environment: loading env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("environment: loading .env: %w", err)
	}

	env := &Environment{}
	if o.secretSet {
		env.secret = o.secret
	} else {
		env.secret = os.Getenv(SecurityVar)
	}
	return env, nil
}

// Lookup fetches name from the environment. The boolean reports presence:
// an unset variable yields ("", false), a set-but-empty one ("", true).
//
// A non-empty value is probed with a codec keyed to this variable; when
// recognized it is decoded, otherwise the raw value passes through verbatim.
// With its one-byte checksum the probe can misfire on foreign hex input
// roughly once in 256 structurally valid candidates, in which case the
// decoded garbage is returned; callers storing arbitrary hex in env vars
// should not also store encoded values under the same names.
func (e *Environment) Lookup(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	if raw == "" {
		return "", true
	}

	codec, err := e.codecFor(name)
	if err != nil {
		return raw, true
	}
	if codec.IsEncoded(raw) {
		if decoded, err := codec.Decode(raw); err == nil {
			return decoded, true
		}
	}
	return raw, true
}

// Get is Lookup without the presence flag; unset and empty both yield "".
func (e *Environment) Get(name string) string {
	value, _ := e.Lookup(name)
	return value
}

// EncodeValue produces the obfuscated form of value under the key set that
// Lookup will use for name, so the output can be pasted straight into an env
// file and read back transparently.
func (e *Environment) EncodeValue(name, value string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("environment: variable name must not be empty")
	}
	codec, err := e.codecFor(name)
	if err != nil {
		return "", err
	}
	return codec.Encode(value), nil
}

// codecFor builds the per-variable codec: instance secret first (when set),
// then the variable name.
func (e *Environment) codecFor(name string) (*securedata.Codec, error) {
	keys := make([]string, 0, 2)
	if e.secret != "" {
		keys = append(keys, e.secret)
	}
	keys = append(keys, name)
	return securedata.New(keys...)
}
