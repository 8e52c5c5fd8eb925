package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawasy/aderlee/internal/core/services"
	"github.com/rawasy/aderlee/pkg/securedata"
)

func TestCodecService_RoundTrip(t *testing.T) {
	svc := services.NewCodecService()
	ctx := t.Context()
	keys := []string{"team-secret", "deploy"}

	encoded, err := svc.Encode(ctx, keys, "ssh-rsa AAAAB3... deploy@vault")
	require.NoError(t, err)

	decoded, err := svc.Decode(ctx, keys, encoded)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa AAAAB3... deploy@vault", decoded)

	recognized, err := svc.Probe(ctx, keys, encoded)
	require.NoError(t, err)
	assert.True(t, recognized)

	recognized, err = svc.Probe(ctx, []string{"other-secret"}, encoded)
	require.NoError(t, err)
	assert.False(t, recognized)
}

func TestCodecService_NoKeysUsesDefault(t *testing.T) {
	svc := services.NewCodecService()
	ctx := t.Context()

	encoded, err := svc.Encode(ctx, nil, "value")
	require.NoError(t, err)

	reference, err := securedata.New(securedata.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, reference.Encode("value"), encoded)
}

func TestCodecService_EmptyKeyRejected(t *testing.T) {
	svc := services.NewCodecService()
	ctx := t.Context()

	_, err := svc.Encode(ctx, []string{"good", ""}, "value")
	assert.ErrorIs(t, err, securedata.ErrInvalidKey)

	_, err = svc.Decode(ctx, []string{""}, "00")
	assert.ErrorIs(t, err, securedata.ErrInvalidKey)

	_, err = svc.Probe(ctx, []string{""}, "00")
	assert.ErrorIs(t, err, securedata.ErrInvalidKey)
}
