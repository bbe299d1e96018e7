package guard

import (
	"crypto/rand"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/dosguard/banstore"
	"github.com/mezonai/dosguard/mempool"
	"github.com/mezonai/dosguard/ratelimit"
	"github.com/mezonai/dosguard/transaction"
)

var (
	honest  = netip.MustParseAddr("198.51.100.1")
	hostile = netip.MustParseAddr("198.51.100.2")
)

func randomHash(t *testing.T) transaction.Hash {
	t.Helper()
	var h transaction.Hash
	_, err := rand.Read(h[:])
	require.NoError(t, err)
	return h
}

func orphanTx(t *testing.T, inputs int) []byte {
	t.Helper()
	tx := transaction.NewTx()
	parent := randomHash(t)
	for i := 0; i < inputs; i++ {
		tx.AddInput(transaction.OutPoint{Hash: parent, Index: uint32(i)})
	}
	tx.AddOutput(1, [transaction.PubKeyHashSize]byte{1})
	return tx.Encode()
}

func newTestGuard(t *testing.T, mutate func(o *Options)) (*Guard, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	opts := DefaultOptions()
	opts.Clock = mock
	if mutate != nil {
		mutate(opts)
	}
	g := New(opts)
	t.Cleanup(func() { _ = g.Close() })
	return g, mock
}

func TestHandleOrphanAdmitsAndTrims(t *testing.T) {
	g, _ := newTestGuard(t, func(o *Options) {
		o.Orphans = &mempool.OrphanPoolConfig{MaxOrphanTxSize: 5000, MaxOrphanTxs: 5}
	})

	for i := 0; i < 12; i++ {
		assert.True(t, g.HandleOrphan(honest, orphanTx(t, 1)))
		assert.LessOrEqual(t, g.Orphans().Len(), 5)
	}
	assert.Equal(t, 5, g.Orphans().Len())
	assert.Equal(t, 0, g.Bans().Score(honest))
}

func TestHandleOrphanPenalties(t *testing.T) {
	g, _ := newTestGuard(t, nil)

	raw := orphanTx(t, 1)
	require.True(t, g.HandleOrphan(honest, raw))
	assert.False(t, g.HandleOrphan(honest, raw), "duplicate")
	assert.Equal(t, 0, g.Bans().Score(honest), "duplicates are not penalised")

	assert.False(t, g.HandleOrphan(hostile, orphanTx(t, 500)))
	assert.Equal(t, BanScoreOversizedOrphan, g.Bans().Score(hostile))
	assert.False(t, g.IsBanned(hostile))

	assert.False(t, g.HandleOrphan(hostile, []byte{0xde, 0xad}))
	assert.True(t, g.IsBanned(hostile))

	// banned peers are ignored without touching the pool
	assert.False(t, g.HandleOrphan(hostile, orphanTx(t, 1)))
	assert.Equal(t, 1, g.Orphans().Len())
}

func TestHandleOrphanRateLimit(t *testing.T) {
	g, mock := newTestGuard(t, func(o *Options) {
		o.RateLimit = &ratelimit.RateLimiterConfig{MaxRequests: 3, WindowSize: time.Second}
	})

	for i := 0; i < 3; i++ {
		require.True(t, g.HandleOrphan(hostile, orphanTx(t, 1)))
	}
	assert.False(t, g.HandleOrphan(hostile, orphanTx(t, 1)))
	assert.Equal(t, BanScoreOrphanFlood, g.Bans().Score(hostile))
	assert.True(t, g.HandleOrphan(honest, orphanTx(t, 1)))

	mock.Add(2 * time.Second)
	assert.True(t, g.HandleOrphan(hostile, orphanTx(t, 1)))
}

func TestVerifyInputBansOnInvalidSignature(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pkHash := transaction.PubKeyHash(key.PubKey().SerializeCompressed())

	prev := transaction.NewTx()
	prev.AddInput(transaction.OutPoint{Hash: randomHash(t)})
	prev.AddOutput(100, pkHash)

	tx := transaction.NewTx()
	tx.AddInput(transaction.OutPoint{Hash: prev.Hash()})
	tx.AddOutput(90, pkHash)
	require.NoError(t, transaction.Sign(tx, 0, prev, key))

	assert.True(t, g.VerifyInput(honest, prev, tx, 0))
	assert.True(t, g.VerifyInput(honest, prev, tx, 0))
	assert.Equal(t, uint64(1), g.SigCache().Stats().Hits)
	assert.False(t, g.IsBanned(honest))

	tx.Outputs[0].PubKeyHash = [transaction.PubKeyHashSize]byte{9}
	assert.False(t, g.VerifyInput(hostile, prev, tx, 0))
	assert.True(t, g.IsBanned(hostile))
}

func TestMisbehavingAndExpiry(t *testing.T) {
	g, mock := newTestGuard(t, nil)

	assert.False(t, g.Misbehaving(hostile, 50))
	assert.True(t, g.Misbehaving(hostile, 50))
	mock.Add(24*time.Hour + time.Second)
	assert.False(t, g.IsBanned(hostile))
}

func TestSaveAndLoadBans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banlist.json")
	g, mock := newTestGuard(t, func(o *Options) {
		o.Store = banstore.NewFileStore(path)
	})
	require.True(t, g.Misbehaving(hostile, 100))
	require.NoError(t, g.SaveBans())

	restarted, _ := newTestGuard(t, func(o *Options) {
		o.Store = banstore.NewFileStore(path)
		o.Clock = mock
	})
	n, err := restarted.LoadBans()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, restarted.IsBanned(hostile))
	assert.False(t, restarted.IsBanned(honest))
}

func TestWithoutStoreSaveIsNoop(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	assert.NoError(t, g.SaveBans())
	n, err := g.LoadBans()
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
