package config

import "time"

// Config represents the client configuration
type Config struct {
	Endpoint       string       `json:"endpoint" yaml:"endpoint"`
	BatchSize      int          `json:"batchSize" yaml:"batchSize"`
	RequestTimeout int          `json:"requestTimeout" yaml:"requestTimeout"` // ms
	LogLevel       string       `json:"logLevel" yaml:"logLevel"`
	Login          string       `json:"login,omitempty" yaml:"login,omitempty"`
	Password       string       `json:"password,omitempty" yaml:"password,omitempty"`
	Cache          *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// CacheConfig represents the result cache configuration
type CacheConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	TTL     int      `json:"ttl" yaml:"ttl"`         // seconds
	Size    int      `json:"size" yaml:"size"`       // number of entries
	Methods []string `json:"methods" yaml:"methods"` // wire method names whose results may be cached
}

// Default values
const (
	DefaultEndpoint       = "https://127.0.0.1:3434/u/"
	DefaultBatchSize      = 10
	DefaultRequestTimeout = 30000 // ms
	DefaultLogLevel       = "info"
	DefaultCacheTTL       = 30 // s
	DefaultCacheSize      = 256
)

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}
