package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEYS", "k1:primary-secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 15, cfg.Auth.AccessTokenTTLMinutes)
	require.Equal(t, 14, cfg.Auth.RefreshTokenTTLDays)
	require.Equal(t, 30*time.Second, cfg.Auth.Leeway())
	require.True(t, cfg.Auth.RevokeFamilyOnReplay)
}

func TestLoadRejectsKeylessConfig(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEYS", "no-colon-no-pair")

	_, err := Load()
	require.Error(t, err)
}

func TestSigningKeyPairs(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{SigningKeys: "k2:newest-secret,k1:older-secret"}
	pairs := cfg.SigningKeyPairs()

	require.Len(t, pairs, 2)
	require.Equal(t, [2]string{"k2", "newest-secret"}, pairs[0])
	require.Equal(t, [2]string{"k1", "older-secret"}, pairs[1])
}

func TestSigningKeyPairsSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{SigningKeys: "k1:good, ,no-colon,k2:also-good"}
	pairs := cfg.SigningKeyPairs()

	require.Len(t, pairs, 2)
	require.Equal(t, "k1", pairs[0][0])
	require.Equal(t, "k2", pairs[1][0])
}
