package config

const (
	DefaultBanScore         = 100
	DefaultBanTimeSeconds   = 60 * 60 * 24
	DefaultMaxSigCacheSize  = 50000
	DefaultMaxOrphanTxSize  = 5000
	DefaultMaxOrphanTxs     = 10000
	DefaultOrphanRateLimit  = 100
	DefaultBanStore         = "json"
	DefaultBanStorePath     = "./data/banlist.json"
	DefaultMetricsAddr      = ":9100"
	DefaultSnapshotInterval = 60
	DefaultLogMaxSizeMB     = 100
	DefaultLogMaxAgeDays    = 28
)
