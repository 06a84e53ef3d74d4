package pagecache

// Store defines the port interface for page record storage.
// This interface follows the port-adapter pattern, allowing different
// storage implementations to be swapped without changing the cache policy.
//
// Store holds no policy of its own: capacity and wipe decisions live in
// Cache, which serializes every compound operation.
type Store interface {
	// Get retrieves a record by key.
	// Returns the record and true if found, or nil and false if not found.
	Get(key string) (*PageRecord, bool)

	// Put stores a record under key, overwriting any existing one.
	Put(key string, record *PageRecord)

	// Clear removes every record.
	Clear()

	// Size returns the number of stored records.
	Size() int

	// Keys returns the stored keys in no particular order.
	Keys() []string
}
