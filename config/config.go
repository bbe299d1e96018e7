package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mezonai/dosguard/banstore"
	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/mempool"
	"github.com/mezonai/dosguard/ratelimit"
	"github.com/mezonai/dosguard/security/banscore"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const dosSection = "dos"

func DefaultDosConfig() *DosConfig {
	return &DosConfig{
		BanScore:         DefaultBanScore,
		BanTime:          DefaultBanTimeSeconds,
		MaxSigCacheSize:  DefaultMaxSigCacheSize,
		MaxOrphanTxSize:  DefaultMaxOrphanTxSize,
		MaxOrphanTxs:     DefaultMaxOrphanTxs,
		OrphanRateLimit:  DefaultOrphanRateLimit,
		BanStore:         DefaultBanStore,
		BanStorePath:     DefaultBanStorePath,
		MetricsAddr:      DefaultMetricsAddr,
		SnapshotInterval: DefaultSnapshotInterval,
		LogMaxSizeMB:     DefaultLogMaxSizeMB,
		LogMaxAgeDays:    DefaultLogMaxAgeDays,
	}
}

// LoadDosConfig reads a .yml/.yaml or .ini file. Options missing from the
// file keep their defaults.
func LoadDosConfig(path string) (*DosConfig, error) {
	var (
		cfg *DosConfig
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		cfg, err = LoadDosConfigYAML(path)
	default:
		cfg, err = LoadDosConfigINI(path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	logx.Info("CONFIG", "Loaded dos config from", path)
	return cfg, nil
}

// LoadDosConfigINI reads the [dos] section of an .ini file
func LoadDosConfigINI(path string) (*DosConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load ini %s", path)
	}
	cfg := DefaultDosConfig()
	if err := file.Section(dosSection).MapTo(cfg); err != nil {
		return nil, errors.Wrapf(err, "map [%s] section", dosSection)
	}
	return cfg, nil
}

// LoadDosConfigYAML reads the dos: block of a YAML file
func LoadDosConfigYAML(path string) (*DosConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	cfgFile := ConfigFile{Dos: *DefaultDosConfig()}
	if err := yaml.NewDecoder(file).Decode(&cfgFile); err != nil {
		return nil, errors.Wrapf(err, "decode yaml %s", path)
	}
	return &cfgFile.Dos, nil
}

func (c *DosConfig) Validate() error {
	if c.BanScore <= 0 {
		return errors.Errorf("ban_score must be positive, got %d", c.BanScore)
	}
	if c.BanTime <= 0 {
		return errors.Errorf("ban_time must be positive, got %d", c.BanTime)
	}
	if c.MaxOrphanTxSize <= 0 {
		return errors.Errorf("max_orphan_tx_size must be positive, got %d", c.MaxOrphanTxSize)
	}
	if c.MaxOrphanTxs < 0 {
		return errors.Errorf("max_orphan_txs must not be negative, got %d", c.MaxOrphanTxs)
	}
	if c.MaxSigCacheSize < 0 {
		return errors.Errorf("max_sig_cache_size must not be negative, got %d", c.MaxSigCacheSize)
	}
	if c.OrphanRateLimit < 0 {
		return errors.Errorf("orphan_rate_limit must not be negative, got %d", c.OrphanRateLimit)
	}
	if c.SnapshotInterval < 0 {
		return errors.Errorf("snapshot_interval must not be negative, got %d", c.SnapshotInterval)
	}
	switch banstore.Kind(c.BanStore) {
	case banstore.KindJSON, banstore.KindLevelDB, banstore.KindBolt:
		if c.BanStorePath == "" {
			return errors.Errorf("ban_store_path is required for %s store", c.BanStore)
		}
	case banstore.KindRedis:
		if c.RedisAddr == "" {
			return errors.New("redis_addr is required for redis store")
		}
	default:
		return errors.Errorf("unknown ban_store %q", c.BanStore)
	}
	return nil
}

func (c *DosConfig) BanDuration() time.Duration {
	return time.Duration(c.BanTime) * time.Second
}

func (c *DosConfig) SnapshotEvery() time.Duration {
	return time.Duration(c.SnapshotInterval) * time.Second
}

func (c *DosConfig) BanConfig() *banscore.BanConfig {
	return &banscore.BanConfig{
		BanScore:    c.BanScore,
		BanDuration: c.BanDuration(),
	}
}

func (c *DosConfig) OrphanPoolConfig() *mempool.OrphanPoolConfig {
	return &mempool.OrphanPoolConfig{
		MaxOrphanTxSize: c.MaxOrphanTxSize,
		MaxOrphanTxs:    c.MaxOrphanTxs,
	}
}

func (c *DosConfig) RateLimiterConfig() *ratelimit.RateLimiterConfig {
	cfg := ratelimit.DefaultConfig()
	cfg.MaxRequests = c.OrphanRateLimit
	return cfg
}

func (c *DosConfig) BanStoreOptions() banstore.Options {
	return banstore.Options{
		Kind:      banstore.Kind(c.BanStore),
		Path:      c.BanStorePath,
		RedisAddr: c.RedisAddr,
		RedisDB:   c.RedisDB,
	}
}
