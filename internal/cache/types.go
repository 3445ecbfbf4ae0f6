package cache

// Cache stores raw JSON-RPC results keyed by method and params
type Cache interface {
	// Get retrieves a cached result by key
	// Returns a copy of the cached data and true if found, nil and false otherwise
	Get(key string) ([]byte, bool)

	// Set stores a copy of a result in the cache with the given key
	Set(key string, value []byte)

	// Close releases any resources held by the cache
	Close()
}
