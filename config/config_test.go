package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mezonai/dosguard/banstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultDosConfig(t *testing.T) {
	cfg := DefaultDosConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.BanScore)
	assert.Equal(t, 24*time.Hour, cfg.BanDuration())
	assert.Equal(t, 50000, cfg.MaxSigCacheSize)
	assert.Equal(t, 5000, cfg.MaxOrphanTxSize)
	assert.Equal(t, 10000, cfg.MaxOrphanTxs)

	bans := cfg.BanConfig()
	assert.Equal(t, 100, bans.BanScore)
	assert.Equal(t, 24*time.Hour, bans.BanDuration)
	assert.Equal(t, 5000, cfg.OrphanPoolConfig().MaxOrphanTxSize)
	assert.Equal(t, 100, cfg.RateLimiterConfig().MaxRequests)
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "node.ini", `
[poh]
hashes_per_tick = 5

[dos]
ban_score = 111
ban_time = 3600
max_sig_cache_size = 10
ban_store = bolt
ban_store_path = /tmp/bans.db
`)
	cfg, err := LoadDosConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 111, cfg.BanScore)
	assert.Equal(t, time.Hour, cfg.BanDuration())
	assert.Equal(t, 10, cfg.MaxSigCacheSize)
	// untouched options keep their defaults
	assert.Equal(t, 10000, cfg.MaxOrphanTxs)
	assert.Equal(t, 5000, cfg.MaxOrphanTxSize)

	opts := cfg.BanStoreOptions()
	assert.Equal(t, banstore.KindBolt, opts.Kind)
	assert.Equal(t, "/tmp/bans.db", opts.Path)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "node.yml", `
dos:
  ban_score: 50
  max_orphan_txs: 20
  snapshot_interval: 5
  debug: true
`)
	cfg, err := LoadDosConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.BanScore)
	assert.Equal(t, 20, cfg.MaxOrphanTxs)
	assert.Equal(t, 5*time.Second, cfg.SnapshotEvery())
	assert.True(t, cfg.Debug)
	assert.Equal(t, int64(DefaultBanTimeSeconds), cfg.BanTime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadDosConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
	_, err = LoadDosConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "bad.ini", "[dos]\nban_score = 0\n")
	_, err := LoadDosConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *DosConfig){
		"zero ban time":         func(c *DosConfig) { c.BanTime = 0 },
		"zero orphan size":      func(c *DosConfig) { c.MaxOrphanTxSize = 0 },
		"negative orphans":      func(c *DosConfig) { c.MaxOrphanTxs = -1 },
		"negative sig cache":    func(c *DosConfig) { c.MaxSigCacheSize = -1 },
		"negative rate limit":   func(c *DosConfig) { c.OrphanRateLimit = -1 },
		"negative snapshot":     func(c *DosConfig) { c.SnapshotInterval = -1 },
		"unknown store":         func(c *DosConfig) { c.BanStore = "csv" },
		"store without path":    func(c *DosConfig) { c.BanStorePath = "" },
		"redis without address": func(c *DosConfig) { c.BanStore = "redis" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultDosConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultDosConfig()
	cfg.MaxSigCacheSize = 0
	cfg.MaxOrphanTxs = 0
	assert.NoError(t, cfg.Validate(), "zero disables the cache and keeps no orphans")
}
