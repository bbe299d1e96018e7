package db

import (
	"fmt"
)

type DBVendor string

const (
	LevelDB DBVendor = "leveldb"
	BoltDB  DBVendor = "bolt"
	Redis   DBVendor = "redis"
)

const DefaultBucket = "dosguard"

type DBOptions struct {
	// Directory for leveldb, database file for bolt
	Path      string
	Bucket    string
	RedisAddr string
	RedisDB   int
}

func CreateDBProvider(vendor DBVendor, options DBOptions) (IterableProvider, error) {
	var (
		provider IterableProvider
		err      error
	)
	switch vendor {
	case LevelDB:
		provider, err = NewLevelDBProvider(options.Path)

	case BoltDB:
		bucket := options.Bucket
		if bucket == "" {
			bucket = DefaultBucket
		}
		provider, err = NewBoltProvider(options.Path, bucket)

	case Redis:
		addr := options.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		provider, err = NewRedisProvider(addr, options.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported db provider: %s", vendor)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}
