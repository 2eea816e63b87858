package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAllRequired(t *testing.T) {
	t.Helper()
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("DB_DSN", "postgres://localhost/ttb")
	t.Setenv("MT5_SERVER", "demo.mt5.broker.com")
	t.Setenv("MT5_LOGIN", "12345")
	t.Setenv("MT5_PASSWORD", "secret")
	t.Setenv("MT5_BRIDGE_PATH", "/opt/bridge/mt5bridge")
	t.Setenv("MESSAGING_ACCOUNT_SID", "AC-test")
	t.Setenv("MESSAGING_AUTH_TOKEN", "token")
	t.Setenv("MESSAGING_FROM", "whatsapp:+15550001111")
	t.Setenv("ADMIN_API_KEY", "key")
	t.Setenv("ADMIN_JWT_SECRET", "jwt-secret")
}

func TestLoadSucceedsWithAllRequiredSet(t *testing.T) {
	setAllRequired(t)

	c, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.True(t, c.AllowNegativeMetal, "defaults to true absent ALLOW_NEGATIVE_METAL")
}

func TestLoadFailsOnMissingRequired(t *testing.T) {
	setAllRequired(t)
	t.Setenv("DB_DSN", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestLoadParsesAllowNegativeMetalOverride(t *testing.T) {
	setAllRequired(t)
	t.Setenv("ALLOW_NEGATIVE_METAL", "false")

	c, err := Load()

	require.NoError(t, err)
	assert.False(t, c.AllowNegativeMetal)
}

func TestLoadRejectsInvalidAllowNegativeMetal(t *testing.T) {
	setAllRequired(t)
	t.Setenv("ALLOW_NEGATIVE_METAL", "not-a-bool")

	_, err := Load()

	require.Error(t, err)
}
