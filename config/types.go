package config

// DosConfig holds the [dos] section of the node configuration
type DosConfig struct {
	BanScore        int   `ini:"ban_score" yaml:"ban_score"`
	BanTime         int64 `ini:"ban_time" yaml:"ban_time"` // seconds
	MaxSigCacheSize int   `ini:"max_sig_cache_size" yaml:"max_sig_cache_size"`
	MaxOrphanTxSize int   `ini:"max_orphan_tx_size" yaml:"max_orphan_tx_size"`
	MaxOrphanTxs    int   `ini:"max_orphan_txs" yaml:"max_orphan_txs"`
	// orphan submissions accepted per peer per second, 0 disables the limit
	OrphanRateLimit int `ini:"orphan_rate_limit" yaml:"orphan_rate_limit"`

	BanStore     string `ini:"ban_store" yaml:"ban_store"`
	BanStorePath string `ini:"ban_store_path" yaml:"ban_store_path"`
	RedisAddr    string `ini:"redis_addr" yaml:"redis_addr"`
	RedisDB      int    `ini:"redis_db" yaml:"redis_db"`

	MetricsAddr      string `ini:"metrics_addr" yaml:"metrics_addr"`
	SnapshotInterval int    `ini:"snapshot_interval" yaml:"snapshot_interval"` // seconds

	LogFile       string `ini:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `ini:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxAgeDays int    `ini:"log_max_age_days" yaml:"log_max_age_days"`
	Debug         bool   `ini:"debug" yaml:"debug"`
}

// ConfigFile is the top-level structure of a YAML configuration
type ConfigFile struct {
	Dos DosConfig `yaml:"dos"`
}
