package banstore

import (
	"sort"

	"github.com/mezonai/dosguard/db"
	"github.com/mezonai/dosguard/jsonx"
	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/security/banscore"
	"github.com/pkg/errors"
)

var banKeyPrefix = []byte("ban:")

func banKey(addr string) []byte {
	return append(append([]byte{}, banKeyPrefix...), addr...)
}

// KVStore keeps one record per banned address in a key-value backend.
type KVStore struct {
	provider db.IterableProvider
}

func NewKVStore(provider db.IterableProvider) *KVStore {
	return &KVStore{provider: provider}
}

// Save deletes records missing from entries and writes the rest in one batch.
func (s *KVStore) Save(entries []banscore.BanEntry) error {
	keep := make(map[string]struct{}, len(entries))
	batch := s.provider.Batch()
	for _, entry := range entries {
		value, err := jsonx.Marshal(entry)
		if err != nil {
			return errors.Wrapf(err, "marshal ban for %s", entry.Addr)
		}
		key := banKey(entry.Addr)
		keep[string(key)] = struct{}{}
		batch.Put(key, value)
	}

	var stale [][]byte
	err := s.provider.IteratePrefix(banKeyPrefix, func(key, _ []byte) bool {
		if _, ok := keep[string(key)]; !ok {
			stale = append(stale, key)
		}
		return true
	})
	if err != nil {
		return errors.Wrap(err, "scan stored bans")
	}
	for _, key := range stale {
		batch.Delete(key)
	}

	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write bans")
	}
	logx.Info("BANSTORE", "Saved", len(entries), "bans, dropped", len(stale))
	return nil
}

func (s *KVStore) Load() ([]banscore.BanEntry, error) {
	entries := make([]banscore.BanEntry, 0)
	var decodeErr error
	err := s.provider.IteratePrefix(banKeyPrefix, func(key, value []byte) bool {
		var entry banscore.BanEntry
		if err := jsonx.Unmarshal(value, &entry); err != nil {
			decodeErr = errors.Wrapf(err, "decode ban %s", key)
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan stored bans")
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Addr < entries[j].Addr
	})
	logx.Info("BANSTORE", "Loaded", len(entries), "bans")
	return entries, nil
}

func (s *KVStore) Close() error {
	return s.provider.Close()
}
