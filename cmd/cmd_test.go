package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/dosguard/banstore"
	"github.com/mezonai/dosguard/config"
	"github.com/mezonai/dosguard/security/banscore"
)

func TestPrintBansHidesExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []banscore.BanEntry{
		{Addr: "10.0.0.1", Score: 100, Until: now.Add(time.Hour)},
		{Addr: "10.0.0.2", Score: 150, Until: now.Add(-time.Hour)},
	}

	var out bytes.Buffer
	require.NoError(t, printBans(&out, entries, now, false))
	assert.Contains(t, out.String(), "10.0.0.1")
	assert.Contains(t, out.String(), "1h0m0s")
	assert.NotContains(t, out.String(), "10.0.0.2")

	out.Reset()
	require.NoError(t, printBans(&out, entries, now, true))
	assert.Contains(t, out.String(), "10.0.0.2")

	out.Reset()
	require.NoError(t, printBans(&out, nil, now, false))
	assert.Contains(t, out.String(), "(empty)")
}

func TestConfigCheckPrintsEffectiveValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[dos]\nban_score = 42\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "check", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "ban_score: 42")
	assert.Contains(t, out.String(), "max_sig_cache_size: 50000")
}

func TestBansListReadsStore(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "banlist.json")
	configPath := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(configPath, []byte("[dos]\nban_store = json\nban_store_path = "+storePath+"\n"), 0644))

	require.NoError(t, banstore.NewFileStore(storePath).Save([]banscore.BanEntry{
		{Addr: "203.0.113.9", Score: 100, Until: time.Now().Add(time.Hour)},
	}))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"bans", "list", "--config", configPath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "203.0.113.9")
}

func TestNewGuardFromConfig(t *testing.T) {
	cfg := config.DefaultDosConfig()
	cfg.BanStore = string(banstore.KindBolt)
	cfg.BanStorePath = filepath.Join(t.TempDir(), "bans.db")
	cfg.BanScore = 10

	g, err := newGuard(cfg)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, 10, g.Bans().Config().BanScore)
	assert.Equal(t, cfg.MaxSigCacheSize, g.SigCache().MaxEntries())
	n, err := g.LoadBans()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
