package banstore

import (
	"github.com/mezonai/dosguard/db"
	"github.com/mezonai/dosguard/security/banscore"
	"github.com/pkg/errors"
)

type Kind string

const (
	KindJSON    Kind = "json"
	KindLevelDB Kind = "leveldb"
	KindBolt    Kind = "bolt"
	KindRedis   Kind = "redis"
)

// Store persists the active bans of a ban table between restarts.
type Store interface {
	// Save replaces the stored list with entries
	Save(entries []banscore.BanEntry) error
	Load() ([]banscore.BanEntry, error)
	Close() error
}

type Options struct {
	Kind Kind
	// file for json and bolt, directory for leveldb
	Path      string
	RedisAddr string
	RedisDB   int
}

func New(opts Options) (Store, error) {
	switch opts.Kind {
	case KindJSON, "":
		return NewFileStore(opts.Path), nil
	case KindLevelDB, KindBolt, KindRedis:
		provider, err := db.CreateDBProvider(db.DBVendor(opts.Kind), db.DBOptions{
			Path:      opts.Path,
			Bucket:    "bans",
			RedisAddr: opts.RedisAddr,
			RedisDB:   opts.RedisDB,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "open %s ban store", opts.Kind)
		}
		return NewKVStore(provider), nil
	default:
		return nil, errors.Errorf("unknown ban store kind %q", opts.Kind)
	}
}
