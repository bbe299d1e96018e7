package db

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProviders(t *testing.T) map[DBVendor]IterableProvider {
	t.Helper()
	dir := t.TempDir()
	providers := make(map[DBVendor]IterableProvider)

	level, err := CreateDBProvider(LevelDB, DBOptions{Path: filepath.Join(dir, "leveldb")})
	require.NoError(t, err)
	providers[LevelDB] = level

	bolt, err := CreateDBProvider(BoltDB, DBOptions{Path: filepath.Join(dir, "bolt", "bans.db")})
	require.NoError(t, err)
	providers[BoltDB] = bolt

	if addr := os.Getenv("DOSGUARD_TEST_REDIS"); addr != "" {
		redis, err := CreateDBProvider(Redis, DBOptions{RedisAddr: addr, RedisDB: 15})
		require.NoError(t, err)
		providers[Redis] = redis
	}

	t.Cleanup(func() {
		for _, p := range providers {
			_ = p.Close()
		}
	})
	return providers
}

func TestProviderBasicOperations(t *testing.T) {
	for vendor, p := range openProviders(t) {
		t.Run(string(vendor), func(t *testing.T) {
			key := []byte("test:basic:" + string(vendor))

			value, err := p.Get(key)
			require.NoError(t, err)
			assert.Nil(t, value)

			has, err := p.Has(key)
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, p.Put(key, []byte("hello")))
			value, err = p.Get(key)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), value)

			has, err = p.Has(key)
			require.NoError(t, err)
			assert.True(t, has)

			require.NoError(t, p.Delete(key))
			value, err = p.Get(key)
			require.NoError(t, err)
			assert.Nil(t, value)
		})
	}
}

func TestProviderBatchAndPrefix(t *testing.T) {
	for vendor, p := range openProviders(t) {
		t.Run(string(vendor), func(t *testing.T) {
			prefix := "test:prefix:" + string(vendor) + ":"
			require.NoError(t, p.Put([]byte(prefix+"stale"), []byte("x")))
			require.NoError(t, p.Put([]byte("test:other:"+string(vendor)), []byte("y")))

			batch := p.Batch()
			batch.Put([]byte(prefix+"a"), []byte("1"))
			batch.Put([]byte(prefix+"b"), []byte("2"))
			batch.Delete([]byte(prefix + "stale"))
			require.NoError(t, batch.Write())

			var keys []string
			err := p.IteratePrefix([]byte(prefix), func(key, value []byte) bool {
				keys = append(keys, string(key))
				return true
			})
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{prefix + "a", prefix + "b"}, keys)

			seen := 0
			err = p.IteratePrefix([]byte(prefix), func(key, value []byte) bool {
				seen++
				return false
			})
			require.NoError(t, err)
			assert.Equal(t, 1, seen)

			batch.Reset()
			batch.Delete([]byte(prefix + "a"))
			batch.Delete([]byte(prefix + "b"))
			require.NoError(t, batch.Write())
		})
	}
}

func TestCreateDBProviderRejectsUnknownVendor(t *testing.T) {
	_, err := CreateDBProvider("rocksdb", DBOptions{Path: t.TempDir()})
	assert.Error(t, err)
}

func TestCloseTwice(t *testing.T) {
	p, err := NewLevelDBProvider(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
