package services

import (
	"context"

	"github.com/rawasy/aderlee/pkg/securedata"
)

// CodecService exposes the raw codec for ad-hoc transforms with
// caller-supplied keys, independent of the stored secrets and the
// vault's own master keying.
type CodecService struct{}

func NewCodecService() *CodecService {
	return &CodecService{}
}

// Encode obfuscates value under the given key set. With no keys the
// codec's built-in default key applies.
func (s *CodecService) Encode(ctx context.Context, keys []string, value string) (string, error) {
	codec, err := securedata.New(keys...)
	if err != nil {
		return "", err
	}
	return codec.Encode(value), nil
}

// Decode reverses Encode under the given key set.
func (s *CodecService) Decode(ctx context.Context, keys []string, encoded string) (string, error) {
	codec, err := securedata.New(keys...)
	if err != nil {
		return "", err
	}
	return codec.Decode(encoded)
}

// Probe reports whether candidate looks like output of Encode under
// the given key set. Only invalid key material makes Probe fail.
func (s *CodecService) Probe(ctx context.Context, keys []string, candidate string) (bool, error) {
	codec, err := securedata.New(keys...)
	if err != nil {
		return false, err
	}
	return codec.IsEncoded(candidate), nil
}
