package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "bnc.snoonet.org", cfg.Server)
	assert.Equal(t, 5457, cfg.Port)
	assert.True(t, cfg.SSL)
	assert.Equal(t, "*", cfg.StatusPrefix)
	assert.Equal(t, ".", cfg.CommandPrefix)
	assert.Equal(t, "127.0.0.0/16", cfg.BindHostNet)
	assert.Equal(t, 8*time.Hour, cfg.ResyncInterval)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.Admins)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
server = "irc.example.net"
port = 6697
nick = "bncserv"
log_channel = "##bnc-log"
admins = ["*!*@example/staff/*"]
bind_host_net = "10.0.0.0/24"
resync_interval = "1h"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "irc.example.net", cfg.Server)
	assert.Equal(t, 6697, cfg.Port)
	assert.Equal(t, "bncserv", cfg.Nick)
	assert.Equal(t, "##bnc-log", cfg.LogChannel)
	assert.Equal(t, []string{"*!*@example/staff/*"}, cfg.Admins)
	assert.Equal(t, "10.0.0.0/24", cfg.BindHostNet)
	assert.Equal(t, time.Hour, cfg.ResyncInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{name: "bad port", contents: "port = 0\n"},
		{name: "long prefix", contents: "command_prefix = \"!!\"\n"},
		{name: "empty nick", contents: "nick = \"\"\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.contents), 0o600))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
