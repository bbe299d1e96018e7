package db

// DatabaseProvider abstracts the key-value backends ban lists can be kept in.
type DatabaseProvider interface {
	// Get returns nil, nil when the key is missing
	Get(key []byte) ([]byte, error)

	Put(key, value []byte) error

	Delete(key []byte) error

	Has(key []byte) (bool, error)

	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with iteration capabilities
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix iterates over all key-value pairs with the given prefix.
	// The callback returns false to stop iteration.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch collects writes that are applied together by Write
type DatabaseBatch interface {
	Put(key, value []byte)

	Delete(key []byte)

	Write() error

	// Reset clears the batch
	Reset()
}
