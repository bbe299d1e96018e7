package sigcache

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/monitoring"
	"github.com/mezonai/dosguard/transaction"
)

const DefaultMaxEntries = 50000

type cacheKey [sha256.Size]byte

type Stats struct {
	Hits      uint64
	Misses    uint64
	Clears    uint64
	Evictions uint64
}

// SigCache remembers signature verification outcomes for
// (sighash, pubkey, signature) triples. A cached answer is always the one
// the backing verifier produced for the same triple.
type SigCache struct {
	mu         sync.Mutex
	verifier   transaction.SignatureVerifier
	maxEntries int

	entries map[cacheKey]bool
	// dense key vector so a random victim costs O(1)
	keys []cacheKey
	pos  map[cacheKey]int

	rng   *rand.Rand
	stats Stats
}

// New wraps verifier, defaulting to secp256k1 ECDSA when it is nil.
func New(maxEntries int, verifier transaction.SignatureVerifier) *SigCache {
	if verifier == nil {
		verifier = transaction.Secp256k1Verifier{}
	}
	return &SigCache{
		verifier:   verifier,
		maxEntries: maxEntries,
		entries:    make(map[cacheKey]bool),
		pos:        make(map[cacheKey]int),
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
}

// makeKey length-prefixes the variable parts so no two distinct triples collide by concatenation.
func makeKey(sigHash transaction.Hash, pubKey, sig []byte) cacheKey {
	h := sha256.New()
	var lenBuf [4]byte
	h.Write(sigHash[:])
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(pubKey)))
	h.Write(lenBuf[:])
	h.Write(pubKey)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(sig)))
	h.Write(lenBuf[:])
	h.Write(sig)

	var k cacheKey
	copy(k[:], h.Sum(nil))
	return k
}

// Verify implements transaction.SignatureVerifier. The backing verifier runs
// without the cache lock held.
func (sc *SigCache) Verify(sigHash transaction.Hash, pubKey, sig []byte) bool {
	k := makeKey(sigHash, pubKey, sig)

	sc.mu.Lock()
	if valid, ok := sc.entries[k]; ok {
		sc.stats.Hits++
		sc.mu.Unlock()
		monitoring.RecordSigCacheLookup(true)
		return valid
	}
	sc.stats.Misses++
	sc.mu.Unlock()
	monitoring.RecordSigCacheLookup(false)

	valid := sc.verifier.Verify(sigHash, pubKey, sig)

	sc.mu.Lock()
	sc.insertLocked(k, valid)
	size := len(sc.entries)
	sc.mu.Unlock()
	monitoring.SetSigCacheSize(size)

	return valid
}

func (sc *SigCache) insertLocked(k cacheKey, valid bool) {
	if sc.maxEntries <= 0 {
		return
	}
	if _, exists := sc.entries[k]; exists {
		// a concurrent miss already stored the same deterministic outcome
		return
	}

	if len(sc.entries) > sc.maxEntries {
		// the maximum was lowered below the population
		logx.Info("SIGCACHE", "clearing", len(sc.entries), "entries, new max:", sc.maxEntries)
		sc.clearLocked()
		sc.stats.Clears++
		monitoring.IncreaseSigCacheClears()
	} else if len(sc.entries) == sc.maxEntries {
		victim := sc.keys[sc.rng.Intn(len(sc.keys))]
		sc.removeLocked(victim)
		sc.stats.Evictions++
	}

	sc.entries[k] = valid
	sc.pos[k] = len(sc.keys)
	sc.keys = append(sc.keys, k)
}

func (sc *SigCache) removeLocked(k cacheKey) {
	delete(sc.entries, k)
	i := sc.pos[k]
	last := len(sc.keys) - 1
	if i != last {
		moved := sc.keys[last]
		sc.keys[i] = moved
		sc.pos[moved] = i
	}
	sc.keys = sc.keys[:last]
	delete(sc.pos, k)
}

func (sc *SigCache) clearLocked() {
	sc.entries = make(map[cacheKey]bool)
	sc.pos = make(map[cacheKey]int)
	sc.keys = nil
}

// SetMaxEntries changes the capacity. Lowering it below the current
// population clears the cache at the next insertion; zero or less disables
// caching.
func (sc *SigCache) SetMaxEntries(n int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.maxEntries = n
	if n <= 0 && len(sc.entries) > 0 {
		sc.clearLocked()
		sc.stats.Clears++
		monitoring.IncreaseSigCacheClears()
	}
}

func (sc *SigCache) MaxEntries() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.maxEntries
}

func (sc *SigCache) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.entries)
}

func (sc *SigCache) Stats() Stats {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.stats
}
