package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/NamanBalaji/segreq/internal/config"
	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
)

func writeEnv(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), cfg.EnvFile)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestApplyEnv_File(t *testing.T) {
	path := writeEnv(t, `
SEGREQ_USER_AGENT=aria2
SEGREQ_DISABLE_KEEP_ALIVE=true
SEGREQ_HTTP_USER=aria2user
SEGREQ_HTTP_PASSWORD=aria2passwd
SEGREQ_PROXY_ADDRESS=127.0.0.1:3128
SEGREQ_PROXY_METHOD=get
`)

	c := cfg.DefaultConfig()
	require.NoError(t, c.ApplyEnv(path))

	assert.Equal(t, "aria2", c.UserAgent)
	assert.True(t, c.DisableKeepAlive)
	assert.True(t, c.Http.AuthEnabled)
	assert.Equal(t, "aria2user", c.Http.User)
	assert.Equal(t, "aria2passwd", c.Http.Password)
	assert.True(t, c.Proxy.Enabled)
	assert.Equal(t, "127.0.0.1:3128", c.Proxy.Address)
	assert.Equal(t, cfg.ProxyMethodGet, c.Proxy.Method)
	assert.False(t, c.Proxy.AuthEnabled)
}

func TestApplyEnv_ProcessWins(t *testing.T) {
	path := writeEnv(t, "SEGREQ_USER_AGENT=from-file\nSEGREQ_STATE_DB=/tmp/file.db\n")
	t.Setenv("SEGREQ_USER_AGENT", "from-env")

	c := cfg.DefaultConfig()
	require.NoError(t, c.ApplyEnv(path))

	assert.Equal(t, "from-env", c.UserAgent)
	assert.Equal(t, "/tmp/file.db", c.StateDB)
}

func TestApplyEnv_MissingFile(t *testing.T) {
	c := cfg.DefaultConfig()
	def := cfg.DefaultConfig()

	require.NoError(t, c.ApplyEnv(filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, def.UserAgent, c.UserAgent)
	assert.False(t, c.Proxy.Enabled)
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad bool", "SEGREQ_DISABLE_KEEP_ALIVE=sometimes\n"},
		{"bad proxy method", "SEGREQ_PROXY_METHOD=socks\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg.DefaultConfig()
			err := c.ApplyEnv(writeEnv(t, tt.contents))
			require.Error(t, err)
			assert.True(t, reqErrors.IsConfigError(err))
		})
	}
}
