package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "INSIGHTS_TRANSCRIPTION_API_KEY", EnvVar(TranscriptionAPIKey))
	assert.Equal(t, "INSIGHTS_PROVIDER_MISTRAL_LOCAL_API_KEY", EnvVar(ProviderCredential("mistral-local")))
}

func TestResolvePrefersEnvironment(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Store("transcription", "keyring-value"))
	t.Setenv("INSIGHTS_TRANSCRIPTION_API_KEY", "env-value")

	secret, err := Resolve(TranscriptionAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "env-value", secret)
}

func TestResolveFallsBackToKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Store("embedding", "stored-key"))

	secret, err := Resolve(EmbeddingAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", secret)
}

func TestResolveMissingCredential(t *testing.T) {
	keyring.MockInit()

	_, err := Resolve("provider-nonexistent")
	assert.ErrorIs(t, err, ErrNotStored)

	secret, err := ResolveOptional("provider-nonexistent")
	require.NoError(t, err)
	assert.Empty(t, secret)
}

func TestStoreAndDelete(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, Store("provider-backup", "abc123"))
	secret, err := Resolve("provider-backup")
	require.NoError(t, err)
	assert.Equal(t, "abc123", secret)

	require.NoError(t, Delete("provider-backup"))
	_, err = Resolve("provider-backup")
	assert.ErrorIs(t, err, ErrNotStored)

	assert.ErrorIs(t, Delete("provider-backup"), ErrNotStored)
}

func TestStoreValidation(t *testing.T) {
	assert.Error(t, Store("", "x"))
	assert.Error(t, Store("name", ""))
}
