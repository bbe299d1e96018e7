package monitoring

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/mezonai/dosguard/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type OrphanRejectedReason string

var (
	OrphanOversized OrphanRejectedReason = "oversized"
	OrphanMalformed OrphanRejectedReason = "malformed"
	OrphanDuplicate OrphanRejectedReason = "duplicate"
)

type dosPromMetrics struct {
	nodeUpUnixSeconds   prometheus.Gauge
	orphanPoolSize      prometheus.Gauge
	orphanRejectedCount *prometheus.CounterVec
	orphanEvictedCount  prometheus.Counter
	misbehaviorScore    prometheus.Counter
	bansIssued          prometheus.Counter
	activeBans          prometheus.Gauge
	sigCacheLookups     *prometheus.CounterVec
	sigCacheClears      prometheus.Counter
	sigCacheSize        prometheus.Gauge
	panicCount          prometheus.Counter
}

func newDosPromMetrics() *dosPromMetrics {
	return &dosPromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dosguard_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the process start",
			},
		),
		orphanPoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dosguard_orphan_pool_size",
				Help: "Number of orphan transactions waiting for their inputs",
			},
		),
		orphanRejectedCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dosguard_orphan_rejected_count",
				Help: "The total number of orphan transactions refused by the pool",
			},
			[]string{"reason"},
		),
		orphanEvictedCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dosguard_orphan_evicted_count",
				Help: "The total number of orphans evicted by size limiting",
			},
		),
		misbehaviorScore: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dosguard_misbehavior_score_total",
				Help: "Sum of all misbehavior score reported against peers",
			},
		),
		bansIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dosguard_bans_issued_count",
				Help: "The total number of bans issued or extended",
			},
		),
		activeBans: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dosguard_active_bans",
				Help: "Number of addresses banned at the last snapshot",
			},
		),
		sigCacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dosguard_sigcache_lookup_count",
				Help: "Signature cache lookups by result",
			},
			[]string{"result"},
		),
		sigCacheClears: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dosguard_sigcache_clear_count",
				Help: "Times the signature cache was dropped after its bound shrank",
			},
		),
		sigCacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dosguard_sigcache_size",
				Help: "Entries currently held by the signature cache",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dosguard_panic_count",
				Help: "Recovered goroutine panics",
			},
		),
	}
}

var (
	initOnce   sync.Once
	dosMetrics atomic.Pointer[dosPromMetrics]
)

// InitMetrics registers the collectors once. Until it is called every setter is a no-op.
func InitMetrics() {
	initOnce.Do(func() {
		m := newDosPromMetrics()
		m.nodeUpUnixSeconds.SetToCurrentTime()
		dosMetrics.Store(m)
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetOrphanPoolSize(size int) {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.orphanPoolSize.Set(float64(size))
}

func RecordRejectedOrphan(reason OrphanRejectedReason) {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.orphanRejectedCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func RecordEvictedOrphans(n int) {
	m := dosMetrics.Load()
	if m == nil || n <= 0 {
		return
	}
	m.orphanEvictedCount.Add(float64(n))
}

func RecordMisbehavior(delta int) {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.misbehaviorScore.Add(float64(delta))
}

func IncreaseBansIssued() {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.bansIssued.Inc()
}

func SetActiveBans(n int) {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.activeBans.Set(float64(n))
}

func RecordSigCacheLookup(hit bool) {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.sigCacheLookups.With(prometheus.Labels{
		"result": result,
	}).Inc()
}

func IncreaseSigCacheClears() {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.sigCacheClears.Inc()
}

func SetSigCacheSize(size int) {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.sigCacheSize.Set(float64(size))
}

func IncreasePanicCount() {
	m := dosMetrics.Load()
	if m == nil {
		return
	}
	m.panicCount.Inc()
}
