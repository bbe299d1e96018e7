package banscore

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/monitoring"
)

const (
	DefaultBanScore    = 100
	DefaultBanDuration = 24 * time.Hour
)

type BanConfig struct {
	// cumulative misbehavior at which an address gets banned
	BanScore    int
	BanDuration time.Duration
}

func DefaultBanConfig() *BanConfig {
	return &BanConfig{
		BanScore:    DefaultBanScore,
		BanDuration: DefaultBanDuration,
	}
}

// PeerReputation is created on the first misbehavior report for an address.
type PeerReputation struct {
	Addr      netip.Addr
	Score     int
	BanExpiry time.Time // zero until the first ban
	LastSeen  time.Time
}

// BanEntry describes an active ban, used to persist and restore the table.
type BanEntry struct {
	Addr   string    `json:"address"`
	Score  int       `json:"score"`
	Until  time.Time `json:"banned_until"`
	Reason string    `json:"reason,omitempty"`
}

// BanTable tracks misbehavior per address. Bans expire lazily: IsBanned
// compares the expiry with the clock and nothing ever sweeps the table.
type BanTable struct {
	mu     sync.Mutex
	clock  clock.Clock
	config BanConfig
	peers  map[netip.Addr]*PeerReputation
}

// NewBanTable uses the wall clock when clk is nil.
func NewBanTable(config *BanConfig, clk clock.Clock) *BanTable {
	if config == nil {
		config = DefaultBanConfig()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &BanTable{
		clock:  clk,
		config: *config,
		peers:  make(map[netip.Addr]*PeerReputation),
	}
}

// key drops ports and IPv4-in-IPv6 mapping so one host maps to one record.
func key(addr netip.Addr) netip.Addr {
	return addr.Unmap().WithZone("")
}

// ReportMisbehavior adds delta to the address score and bans it once the
// score reaches the threshold. Non-positive deltas are ignored. It reports
// whether the address is banned after the call.
func (bt *BanTable) ReportMisbehavior(addr netip.Addr, delta int) bool {
	addr = key(addr)

	bt.mu.Lock()
	defer bt.mu.Unlock()

	now := bt.clock.Now()
	if delta <= 0 {
		rep, exists := bt.peers[addr]
		return exists && now.Before(rep.BanExpiry)
	}

	rep, exists := bt.peers[addr]
	if !exists {
		rep = &PeerReputation{Addr: addr}
		bt.peers[addr] = rep
	}
	rep.Score += delta
	rep.LastSeen = now
	monitoring.RecordMisbehavior(delta)

	if rep.Score >= bt.config.BanScore {
		until := now.Add(bt.config.BanDuration)
		// a later report never shortens an existing ban
		if until.After(rep.BanExpiry) {
			rep.BanExpiry = until
		}
		monitoring.IncreaseBansIssued()
		logx.Warn("BAN TABLE", "Misbehaving:", addr.String(), "score", rep.Score-delta, "->", rep.Score, "DISCONNECTING")
		return true
	}

	logx.Info("BAN TABLE", "Misbehaving:", addr.String(), "score", rep.Score-delta, "->", rep.Score)
	return now.Before(rep.BanExpiry)
}

// IsBanned is true while the clock is strictly before the address's ban expiry.
func (bt *BanTable) IsBanned(addr netip.Addr) bool {
	addr = key(addr)

	bt.mu.Lock()
	defer bt.mu.Unlock()

	rep, exists := bt.peers[addr]
	if !exists || rep.BanExpiry.IsZero() {
		return false
	}
	return bt.clock.Now().Before(rep.BanExpiry)
}

// ClearAll forgets every address.
func (bt *BanTable) ClearAll() {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.peers = make(map[netip.Addr]*PeerReputation)
	logx.Info("BAN TABLE", "Cleared all peer reputations")
}

func (bt *BanTable) Score(addr netip.Addr) int {
	addr = key(addr)

	bt.mu.Lock()
	defer bt.mu.Unlock()

	if rep, exists := bt.peers[addr]; exists {
		return rep.Score
	}
	return 0
}

// BannedUntil returns the expiry of the address's ban, whether or not it has passed.
func (bt *BanTable) BannedUntil(addr netip.Addr) (time.Time, bool) {
	addr = key(addr)

	bt.mu.Lock()
	defer bt.mu.Unlock()

	rep, exists := bt.peers[addr]
	if !exists || rep.BanExpiry.IsZero() {
		return time.Time{}, false
	}
	return rep.BanExpiry, true
}

func (bt *BanTable) Now() time.Time {
	return bt.clock.Now()
}

func (bt *BanTable) SetBanScore(score int) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.config.BanScore = score
}

func (bt *BanTable) SetBanDuration(d time.Duration) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.config.BanDuration = d
}

func (bt *BanTable) Config() BanConfig {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return bt.config
}

// Snapshot lists the bans that are active now, ordered by address.
func (bt *BanTable) Snapshot() []BanEntry {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	now := bt.clock.Now()
	entries := make([]BanEntry, 0)
	for addr, rep := range bt.peers {
		if !now.Before(rep.BanExpiry) {
			continue
		}
		entries = append(entries, BanEntry{
			Addr:  addr.String(),
			Score: rep.Score,
			Until: rep.BanExpiry,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Addr < entries[j].Addr
	})
	monitoring.SetActiveBans(len(entries))
	return entries
}

// Restore re-applies persisted bans that have not expired yet and returns
// how many were applied. Unparseable addresses are skipped.
func (bt *BanTable) Restore(entries []BanEntry) int {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	now := bt.clock.Now()
	restored := 0
	for _, entry := range entries {
		if !now.Before(entry.Until) {
			continue
		}
		addr, err := netip.ParseAddr(entry.Addr)
		if err != nil {
			logx.Warn("BAN TABLE", "Skipping ban with invalid address:", entry.Addr, err)
			continue
		}
		addr = key(addr)
		rep, exists := bt.peers[addr]
		if !exists {
			rep = &PeerReputation{Addr: addr}
			bt.peers[addr] = rep
		}
		if entry.Score > rep.Score {
			rep.Score = entry.Score
		}
		if entry.Until.After(rep.BanExpiry) {
			rep.BanExpiry = entry.Until
		}
		restored++
	}
	if restored > 0 {
		logx.Info("BAN TABLE", "Restored", restored, "bans")
	}
	return restored
}
