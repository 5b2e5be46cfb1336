package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent askbase configuration stored as config.toml
// in the .askbase/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Completion  CompletionConfig  `toml:"completion"`
	RAG         RAGConfig         `toml:"rag"`
	Cache       CacheConfig       `toml:"cache"`
	Events      EventsConfig      `toml:"events"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// StorageConfig holds query log and feedback storage settings.
// With neither field set the API server keeps them in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen          string `toml:"listen,omitempty"`
	RateLimitMax    uint   `toml:"rate_limit_max,omitempty"`
	RateLimitWindow string `toml:"rate_limit_window,omitempty"`

	// DisableMCP serves /mcp with no tools.
	DisableMCP bool `toml:"disable_mcp,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server (e.g. askbase ask, askbase docs). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// CompletionConfig holds the answer generation model settings.
type CompletionConfig struct {
	Provider    string   `toml:"provider,omitempty"`
	Target      string   `toml:"target,omitempty"`
	Model       string   `toml:"model,omitempty"`
	APIKey      string   `toml:"api_key,omitempty"`
	MaxTokens   uint     `toml:"max_tokens,omitempty"`
	Temperature *float64 `toml:"temperature,omitempty"`
}

// RAGConfig holds retrieval settings for the query pipeline.
type RAGConfig struct {
	// Retriever is "vector" or "keyword".
	Retriever         string  `toml:"retriever,omitempty"`
	TopK              uint    `toml:"top_k,omitempty"`
	MinRelevanceScore float64 `toml:"min_relevance_score,omitempty"`
	Timeout           string  `toml:"timeout,omitempty"`
}

// CacheConfig holds answer cache settings. Provider "none" disables caching.
type CacheConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	TTL      string `toml:"ttl,omitempty"`
}

// EventsConfig holds query event publishing settings. Provider "none"
// disables publishing.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// IngestConfig holds asynchronous ingestion worker settings.
type IngestConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(get func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *get(c) },
		set: func(c *Config, v string) error { *get(c) = v; return nil },
	}
}

func boolKey(name string, get func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if !*get(c) {
				return ""
			}
			return "true"
		},
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = b
			return nil
		},
	}
}

func uintKey(name string, get func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, get func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*get(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = f
			return nil
		},
	}
}

// optionalFloatKey is a float setting where zero is meaningful, so it is
// kept as a pointer and only an unset value prints as empty.
func optionalFloatKey(name string, get func(c *Config) **float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == nil {
				return ""
			}
			return strconv.FormatFloat(**get(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = &f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"api.listen":            stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.rate_limit_max":    uintKey("api.rate_limit_max", func(c *Config) *uint { return &c.API.RateLimitMax }),
	"api.rate_limit_window": stringKey(func(c *Config) *string { return &c.API.RateLimitWindow }),
	"api.disable_mcp":       boolKey("api.disable_mcp", func(c *Config) *bool { return &c.API.DisableMCP }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),

	"completion.provider":    stringKey(func(c *Config) *string { return &c.Completion.Provider }),
	"completion.target":      stringKey(func(c *Config) *string { return &c.Completion.Target }),
	"completion.model":       stringKey(func(c *Config) *string { return &c.Completion.Model }),
	"completion.api_key":     stringKey(func(c *Config) *string { return &c.Completion.APIKey }),
	"completion.max_tokens":  uintKey("completion.max_tokens", func(c *Config) *uint { return &c.Completion.MaxTokens }),
	"completion.temperature": optionalFloatKey("completion.temperature", func(c *Config) **float64 { return &c.Completion.Temperature }),

	"rag.retriever":           stringKey(func(c *Config) *string { return &c.RAG.Retriever }),
	"rag.top_k":               uintKey("rag.top_k", func(c *Config) *uint { return &c.RAG.TopK }),
	"rag.min_relevance_score": floatKey("rag.min_relevance_score", func(c *Config) *float64 { return &c.RAG.MinRelevanceScore }),
	"rag.timeout":             stringKey(func(c *Config) *string { return &c.RAG.Timeout }),

	"cache.provider": stringKey(func(c *Config) *string { return &c.Cache.Provider }),
	"cache.target":   stringKey(func(c *Config) *string { return &c.Cache.Target }),
	"cache.ttl":      stringKey(func(c *Config) *string { return &c.Cache.TTL }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"ingest.workers":    uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),
	"ingest.queue_size": uintKey("ingest.queue_size", func(c *Config) *uint { return &c.Ingest.QueueSize }),
}

// orderedConfigKeys lists keys in TOML section order for display.
var orderedConfigKeys = []string{
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"api.listen",
	"api.rate_limit_max",
	"api.rate_limit_window",
	"api.disable_mcp",
	"client.api_target",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.api_key",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"completion.provider",
	"completion.target",
	"completion.model",
	"completion.api_key",
	"completion.max_tokens",
	"completion.temperature",
	"rag.retriever",
	"rag.top_k",
	"rag.min_relevance_score",
	"rag.timeout",
	"cache.provider",
	"cache.target",
	"cache.ttl",
	"events.provider",
	"events.brokers",
	"events.topic",
	"ingest.workers",
	"ingest.queue_size",
}

// secretConfigKeys are masked by Sanitized and by "askbase config list".
var secretConfigKeys = map[string]bool{
	"vector_store.api_key": true,
	"embedding.api_key":    true,
	"completion.api_key":   true,
	"storage.postgres_dsn": true,
}
