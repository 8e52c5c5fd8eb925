package environment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawasy/aderlee/pkg/environment"
	"github.com/rawasy/aderlee/pkg/securedata"
)

func newEnv(t *testing.T, opts ...environment.Option) *environment.Environment {
	t.Helper()
	env, err := environment.New(opts...)
	require.NoError(t, err)
	return env
}

func TestLookup_UnsetAndEmpty(t *testing.T) {
	env := newEnv(t, environment.WithSecret(""))

	_, ok := env.Lookup("ADERLEE_TEST_DOES_NOT_EXIST")
	require.False(t, ok, "unset variable must report absence")

	t.Setenv("ADERLEE_TEST_EMPTY", "")
	value, ok := env.Lookup("ADERLEE_TEST_EMPTY")
	require.True(t, ok, "empty variable is still present")
	require.Equal(t, "", value)
}

func TestLookup_PlaintextPassthrough(t *testing.T) {
	env := newEnv(t, environment.WithSecret("instance-secret"))

	t.Setenv("APP_GREETING", "just a plain value")
	require.Equal(t, "just a plain value", env.Get("APP_GREETING"))

	// Hex-looking but not checksum-valid under this variable's key.
	t.Setenv("APP_TOKEN", "deadbeef")
	require.Equal(t, "deadbeef", env.Get("APP_TOKEN"))
}

func TestLookup_DecodesWithInstanceSecret(t *testing.T) {
	env := newEnv(t, environment.WithSecret("instance-secret"))

	// "p4ssw0rd!" encoded under the key set [instance-secret, APP_PASSWORD].
	t.Setenv("APP_PASSWORD", "6c007d641e010107405a5c3558")

	value, ok := env.Lookup("APP_PASSWORD")
	require.True(t, ok)
	require.Equal(t, "p4ssw0rd!", value)
}

func TestLookup_DecodesWithNameOnlyKey(t *testing.T) {
	env := newEnv(t, environment.WithSecret(""))

	// "postgres://u:p@localhost/db" encoded under [DB_URL] alone.
	t.Setenv("DB_URL", "b85722081e5274061b6c6c2b077e4c5d552a0a7077507e09583a364a5c5b0328567f04305e")

	require.Equal(t, "postgres://u:p@localhost/db", env.Get("DB_URL"))
}

func TestLookup_WrongSecretFallsBackToRaw(t *testing.T) {
	// Value was encoded under "instance-secret", but this process carries a
	// different one: the probe must reject it and the raw value pass through.
	env := newEnv(t, environment.WithSecret("other-secret"))

	const encoded = "6c007d641e010107405a5c3558"
	t.Setenv("APP_PASSWORD", encoded)

	require.Equal(t, encoded, env.Get("APP_PASSWORD"))
}

func TestLookup_SecretReadFromProcessEnv(t *testing.T) {
	t.Setenv(environment.SecurityVar, "instance-secret")
	env := newEnv(t)

	t.Setenv("APP_PASSWORD", "6c007d641e010107405a5c3558")
	require.Equal(t, "p4ssw0rd!", env.Get("APP_PASSWORD"))
}

func TestEncodeValue_RoundTrip(t *testing.T) {
	env := newEnv(t, environment.WithSecret("instance-secret"))

	encoded, err := env.EncodeValue("SMTP_PASSWORD", "s3cr3t value with spaces")
	require.NoError(t, err)

	// The output is exactly what a codec keyed the same way would produce.
	codec, err := securedata.New("instance-secret", "SMTP_PASSWORD")
	require.NoError(t, err)
	require.True(t, codec.IsEncoded(encoded))

	t.Setenv("SMTP_PASSWORD", encoded)
	require.Equal(t, "s3cr3t value with spaces", env.Get("SMTP_PASSWORD"))
}

func TestEncodeValue_RejectsEmptyName(t *testing.T) {
	env := newEnv(t, environment.WithSecret(""))
	_, err := env.EncodeValue("", "value")
	require.Error(t, err)
}

func TestNew_LoadsDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"ADERLEE_DOTENV_PLAIN=from-file\n"+
			"ADERLEE_DOTENV_SECRET=6c007d641e010107405a5c3558\n"), 0o600))

	t.Cleanup(func() {
		os.Unsetenv("ADERLEE_DOTENV_PLAIN")
		os.Unsetenv("ADERLEE_DOTENV_SECRET")
	})

	env := newEnv(t, environment.WithDotenv(path), environment.WithSecret("instance-secret"))

	require.Equal(t, "from-file", env.Get("ADERLEE_DOTENV_PLAIN"))

	// Encoded under [instance-secret, APP_PASSWORD]; read under a different
	// variable name it stays opaque, which is the name-binding working.
	require.Equal(t, "6c007d641e010107405a5c3558", env.Get("ADERLEE_DOTENV_SECRET"))
}

func TestNew_MissingExplicitDotenvFails(t *testing.T) {
	_, err := environment.New(environment.WithDotenv(filepath.Join(t.TempDir(), "nope.env")))
	require.Error(t, err)
}
