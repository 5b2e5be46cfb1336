package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/askbase/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ASKBASE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ASKBASE_API_LISTEN, ASKBASE_RAG_TOP_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("ASKBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		API: APIConfig{
			Listen:          v.GetString("api.listen"),
			RateLimitMax:    v.GetUint("api.rate_limit_max"),
			RateLimitWindow: v.GetString("api.rate_limit_window"),
			DisableMCP:      v.GetBool("api.disable_mcp"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
			APIKey:     v.GetString("vector_store.api_key"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			APIKey:     v.GetString("embedding.api_key"),
		},
		Completion: CompletionConfig{
			Provider:    v.GetString("completion.provider"),
			Target:      v.GetString("completion.target"),
			Model:       v.GetString("completion.model"),
			APIKey:      v.GetString("completion.api_key"),
			MaxTokens:   v.GetUint("completion.max_tokens"),
			Temperature: optionalFloat(v, "completion.temperature"),
		},
		RAG: RAGConfig{
			Retriever:         v.GetString("rag.retriever"),
			TopK:              v.GetUint("rag.top_k"),
			MinRelevanceScore: v.GetFloat64("rag.min_relevance_score"),
			Timeout:           v.GetString("rag.timeout"),
		},
		Cache: CacheConfig{
			Provider: v.GetString("cache.provider"),
			Target:   v.GetString("cache.target"),
			TTL:      v.GetString("cache.ttl"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Ingest: IngestConfig{
			Workers:   v.GetUint("ingest.workers"),
			QueueSize: v.GetUint("ingest.queue_size"),
		},
	}
}

// optionalFloat returns nil when key has no value from any source.
func optionalFloat(v *viper.Viper, key string) *float64 {
	if !v.IsSet(key) {
		return nil
	}
	f := v.GetFloat64(key)
	return &f
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.rate_limit_max", d.API.RateLimitMax)
	v.SetDefault("api.rate_limit_window", d.API.RateLimitWindow)
	v.SetDefault("api.disable_mcp", d.API.DisableMCP)

	v.SetDefault("client.api_target", d.Client.APITarget)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.api_key", d.VectorStore.APIKey)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	v.SetDefault("completion.provider", d.Completion.Provider)
	v.SetDefault("completion.target", d.Completion.Target)
	v.SetDefault("completion.model", d.Completion.Model)
	v.SetDefault("completion.api_key", d.Completion.APIKey)
	v.SetDefault("completion.max_tokens", d.Completion.MaxTokens)
	if d.Completion.Temperature != nil {
		v.SetDefault("completion.temperature", *d.Completion.Temperature)
	}

	v.SetDefault("rag.retriever", d.RAG.Retriever)
	v.SetDefault("rag.top_k", d.RAG.TopK)
	v.SetDefault("rag.min_relevance_score", d.RAG.MinRelevanceScore)
	v.SetDefault("rag.timeout", d.RAG.Timeout)

	v.SetDefault("cache.provider", d.Cache.Provider)
	v.SetDefault("cache.target", d.Cache.Target)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.queue_size", d.Ingest.QueueSize)
}
