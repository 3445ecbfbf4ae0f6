package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Policy decides which methods may have their results cached.
// Only read-only methods belong here; the set comes from configuration.
type Policy struct {
	methods map[string]bool
}

// NewPolicy creates a policy allowing the given wire method names
func NewPolicy(methods []string) *Policy {
	p := &Policy{methods: make(map[string]bool, len(methods))}
	for _, m := range methods {
		p.methods[m] = true
	}
	return p
}

// IsCacheable reports whether results of method may be cached
func (p *Policy) IsCacheable(method string) bool {
	if p == nil {
		return false
	}
	return p.methods[method]
}

// GenerateCacheKey creates a unique cache key for a call
func GenerateCacheKey(method string, params json.RawMessage) string {
	hash := sha256.Sum256(normalizeParams(params))
	return method + ":" + hex.EncodeToString(hash[:16])
}

// normalizeParams re-encodes params so that whitespace and object key order
// do not change the key. String values are kept as-is: tokens are case sensitive.
func normalizeParams(params json.RawMessage) []byte {
	if len(params) == 0 {
		return []byte("[]")
	}

	var data interface{}
	if err := json.Unmarshal(params, &data); err != nil {
		return params
	}

	result, err := json.Marshal(data)
	if err != nil {
		return params
	}
	return result
}
