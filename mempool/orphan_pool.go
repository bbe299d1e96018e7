package mempool

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/monitoring"
	"github.com/mezonai/dosguard/transaction"
)

const (
	// DefaultMaxOrphanTxSize bounds a single orphan. Total orphan memory is
	// roughly MaxOrphanTxSize * MaxOrphanTxs.
	DefaultMaxOrphanTxSize = 5000
	DefaultMaxOrphanTxs    = 10000
)

type RejectReason string

const (
	RejectNone      RejectReason = ""
	RejectOversized RejectReason = "oversized"
	RejectMalformed RejectReason = "malformed"
	RejectDuplicate RejectReason = "duplicate"
)

type OrphanPoolConfig struct {
	MaxOrphanTxSize int
	MaxOrphanTxs    int
}

func DefaultOrphanPoolConfig() *OrphanPoolConfig {
	return &OrphanPoolConfig{
		MaxOrphanTxSize: DefaultMaxOrphanTxSize,
		MaxOrphanTxs:    DefaultMaxOrphanTxs,
	}
}

// OrphanEntry is owned by the pool's primary table. Raw is never shared with
// the index, which only holds hashes.
type OrphanEntry struct {
	Hash    transaction.Hash
	Raw     []byte
	Tx      *transaction.Tx
	AddedAt time.Time
}

// OrphanPool holds transactions whose inputs reference unknown transactions.
type OrphanPool struct {
	mu     sync.Mutex
	config *OrphanPoolConfig

	orphans map[transaction.Hash]*OrphanEntry
	// previous tx hash -> orphans spending one of its outputs
	byPrev map[transaction.Hash]map[transaction.Hash]struct{}

	// dense key vector for uniform random eviction
	keys []transaction.Hash
	pos  map[transaction.Hash]int

	rng *rand.Rand
}

func NewOrphanPool(config *OrphanPoolConfig) *OrphanPool {
	if config == nil {
		config = DefaultOrphanPoolConfig()
	}
	return &OrphanPool{
		config:  config,
		orphans: make(map[transaction.Hash]*OrphanEntry),
		byPrev:  make(map[transaction.Hash]map[transaction.Hash]struct{}),
		pos:     make(map[transaction.Hash]int),
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}
}

// Admit stores raw as an orphan. It reports false, leaving the pool
// untouched, when raw is too large, cannot be parsed or is already held.
func (op *OrphanPool) Admit(raw []byte) bool {
	_, ok := op.AdmitWithReason(raw)
	return ok
}

func (op *OrphanPool) AdmitWithReason(raw []byte) (RejectReason, bool) {
	// size is checked before parsing so a huge payload costs nothing
	if len(raw) > op.config.MaxOrphanTxSize {
		logx.Debug("ORPHAN POOL", "ignoring large orphan tx, size:", len(raw))
		monitoring.RecordRejectedOrphan(monitoring.OrphanOversized)
		return RejectOversized, false
	}

	tx, err := transaction.Decode(raw)
	if err != nil {
		logx.Debug("ORPHAN POOL", "ignoring malformed orphan tx:", err)
		monitoring.RecordRejectedOrphan(monitoring.OrphanMalformed)
		return RejectMalformed, false
	}
	hash := tx.Hash()

	op.mu.Lock()
	defer op.mu.Unlock()

	if _, exists := op.orphans[hash]; exists {
		monitoring.RecordRejectedOrphan(monitoring.OrphanDuplicate)
		return RejectDuplicate, false
	}

	stored := make([]byte, len(raw))
	copy(stored, raw)
	op.orphans[hash] = &OrphanEntry{
		Hash:    hash,
		Raw:     stored,
		Tx:      tx,
		AddedAt: time.Now(),
	}
	op.pos[hash] = len(op.keys)
	op.keys = append(op.keys, hash)
	for _, prev := range tx.PrevHashes() {
		deps, exists := op.byPrev[prev]
		if !exists {
			deps = make(map[transaction.Hash]struct{})
			op.byPrev[prev] = deps
		}
		deps[hash] = struct{}{}
	}

	logx.Debug("ORPHAN POOL", "stored orphan tx", hash.String(), "total:", len(op.orphans))
	monitoring.SetOrphanPoolSize(len(op.orphans))
	return RejectNone, true
}

// LimitSize evicts uniformly random orphans until at most maxEntries remain
// and returns how many were evicted.
func (op *OrphanPool) LimitSize(maxEntries int) int {
	if maxEntries < 0 {
		maxEntries = 0
	}

	op.mu.Lock()
	defer op.mu.Unlock()

	evicted := 0
	for len(op.orphans) > maxEntries {
		victim := op.keys[op.rng.Intn(len(op.keys))]
		op.removeLocked(victim)
		evicted++
	}
	if evicted > 0 {
		logx.Info("ORPHAN POOL", "evicted", evicted, "orphans, remaining:", len(op.orphans))
		monitoring.RecordEvictedOrphans(evicted)
		monitoring.SetOrphanPoolSize(len(op.orphans))
	}
	return evicted
}

// Remove drops an orphan, e.g. once its inputs became known.
func (op *OrphanPool) Remove(hash transaction.Hash) bool {
	op.mu.Lock()
	defer op.mu.Unlock()

	if _, exists := op.orphans[hash]; !exists {
		return false
	}
	op.removeLocked(hash)
	monitoring.SetOrphanPoolSize(len(op.orphans))
	return true
}

// removeLocked is the single place entries leave the pool; the index is
// pruned together with the primary table.
func (op *OrphanPool) removeLocked(hash transaction.Hash) {
	entry := op.orphans[hash]
	for _, prev := range entry.Tx.PrevHashes() {
		deps, exists := op.byPrev[prev]
		if !exists {
			continue
		}
		delete(deps, hash)
		if len(deps) == 0 {
			delete(op.byPrev, prev)
		}
	}
	delete(op.orphans, hash)

	i := op.pos[hash]
	last := len(op.keys) - 1
	if i != last {
		moved := op.keys[last]
		op.keys[i] = moved
		op.pos[moved] = i
	}
	op.keys = op.keys[:last]
	delete(op.pos, hash)
}

func (op *OrphanPool) Has(hash transaction.Hash) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	_, exists := op.orphans[hash]
	return exists
}

// Get returns a copy of the stored raw bytes together with the parsed transaction.
func (op *OrphanPool) Get(hash transaction.Hash) ([]byte, *transaction.Tx, bool) {
	op.mu.Lock()
	defer op.mu.Unlock()

	entry, exists := op.orphans[hash]
	if !exists {
		return nil, nil, false
	}
	raw := make([]byte, len(entry.Raw))
	copy(raw, entry.Raw)
	return raw, entry.Tx, true
}

// Dependents lists the orphans spending an output of prevHash.
func (op *OrphanPool) Dependents(prevHash transaction.Hash) []transaction.Hash {
	op.mu.Lock()
	defer op.mu.Unlock()

	deps := op.byPrev[prevHash]
	result := make([]transaction.Hash, 0, len(deps))
	for hash := range deps {
		result = append(result, hash)
	}
	return result
}

func (op *OrphanPool) Hashes() []transaction.Hash {
	op.mu.Lock()
	defer op.mu.Unlock()

	result := make([]transaction.Hash, len(op.keys))
	copy(result, op.keys)
	return result
}

func (op *OrphanPool) Len() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return len(op.orphans)
}

// IndexLen returns the number of previous transactions orphans are waiting on.
func (op *OrphanPool) IndexLen() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return len(op.byPrev)
}

func (op *OrphanPool) Config() OrphanPoolConfig {
	return *op.config
}
