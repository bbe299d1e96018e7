package guard

import (
	"net/netip"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/mezonai/dosguard/banstore"
	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/mempool"
	"github.com/mezonai/dosguard/ratelimit"
	"github.com/mezonai/dosguard/security/banscore"
	"github.com/mezonai/dosguard/security/sigcache"
	"github.com/mezonai/dosguard/transaction"
)

// Misbehavior penalties applied by the guard.
const (
	BanScoreMalformedTx      = 100
	BanScoreOversizedOrphan  = 20
	BanScoreInvalidSignature = 100
	BanScoreOrphanFlood      = 1
)

type Options struct {
	Orphans     *mempool.OrphanPoolConfig
	Bans        *banscore.BanConfig
	SigCacheMax int
	RateLimit   *ratelimit.RateLimiterConfig
	Verifier    transaction.SignatureVerifier
	Store       banstore.Store
	Clock       clock.Clock
}

func DefaultOptions() *Options {
	return &Options{
		Orphans:     mempool.DefaultOrphanPoolConfig(),
		Bans:        banscore.DefaultBanConfig(),
		SigCacheMax: sigcache.DefaultMaxEntries,
		RateLimit:   ratelimit.DefaultConfig(),
	}
}

// Guard applies the DoS policy for messages received from peers. The
// structures it owns each take their own lock; the guard never holds two at once.
type Guard struct {
	orphans  *mempool.OrphanPool
	bans     *banscore.BanTable
	sigCache *sigcache.SigCache
	limiter  *ratelimit.RateLimiter
	store    banstore.Store
}

func New(opts *Options) *Guard {
	if opts == nil {
		opts = DefaultOptions()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Guard{
		orphans:  mempool.NewOrphanPool(opts.Orphans),
		bans:     banscore.NewBanTable(opts.Bans, clk),
		sigCache: sigcache.New(opts.SigCacheMax, opts.Verifier),
		limiter:  ratelimit.NewRateLimiter(opts.RateLimit, clk),
		store:    opts.Store,
	}
}

// HandleOrphan admits a transaction whose inputs are unknown and penalises
// the sending peer for invalid submissions. The pool is trimmed back to its
// configured maximum afterwards.
func (g *Guard) HandleOrphan(peer netip.Addr, raw []byte) bool {
	if g.bans.IsBanned(peer) {
		return false
	}
	if !g.limiter.Allow(peer.String()) {
		logx.Debug("GUARD", "orphan rate limit exceeded by", peer.String())
		g.bans.ReportMisbehavior(peer, BanScoreOrphanFlood)
		return false
	}

	reason, ok := g.orphans.AdmitWithReason(raw)
	switch reason {
	case mempool.RejectMalformed:
		g.bans.ReportMisbehavior(peer, BanScoreMalformedTx)
	case mempool.RejectOversized:
		g.bans.ReportMisbehavior(peer, BanScoreOversizedOrphan)
	}
	if !ok {
		return false
	}

	g.orphans.LimitSize(g.orphans.Config().MaxOrphanTxs)
	return true
}

// VerifyInput checks one input signature through the cache and bans the
// peer that relayed an invalid one.
func (g *Guard) VerifyInput(peer netip.Addr, prev, tx *transaction.Tx, idx int) bool {
	if transaction.VerifyInput(prev, tx, idx, g.sigCache) {
		return true
	}
	g.bans.ReportMisbehavior(peer, BanScoreInvalidSignature)
	return false
}

// Misbehaving reports a penalty decided by the caller, e.g. for a protocol violation.
func (g *Guard) Misbehaving(peer netip.Addr, howMuch int) bool {
	return g.bans.ReportMisbehavior(peer, howMuch)
}

func (g *Guard) IsBanned(peer netip.Addr) bool {
	return g.bans.IsBanned(peer)
}

// SaveBans persists the active bans; without a store it does nothing.
func (g *Guard) SaveBans() error {
	if g.store == nil {
		return nil
	}
	if err := g.store.Save(g.bans.Snapshot()); err != nil {
		return errors.Wrap(err, "save bans")
	}
	return nil
}

// LoadBans restores persisted bans and returns how many are still active.
func (g *Guard) LoadBans() (int, error) {
	if g.store == nil {
		return 0, nil
	}
	entries, err := g.store.Load()
	if err != nil {
		return 0, errors.Wrap(err, "load bans")
	}
	return g.bans.Restore(entries), nil
}

// Close stops background work and closes the ban store.
func (g *Guard) Close() error {
	g.limiter.Stop()
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}

func (g *Guard) Orphans() *mempool.OrphanPool {
	return g.orphans
}

func (g *Guard) Bans() *banscore.BanTable {
	return g.bans
}

func (g *Guard) SigCache() *sigcache.SigCache {
	return g.sigCache
}
