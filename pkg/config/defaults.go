package config

const (
	defaultAPIListen       = ":8081"
	defaultRateLimitMax    = 100
	defaultRateLimitWindow = "1m"

	defaultClientAPITarget = "http://localhost:8081"

	defaultVectorProvider   = "qdrant"
	defaultVectorTarget     = "http://localhost:6334"
	defaultVectorCollection = "knowledge_base"

	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultCompletionProvider    = "ollama"
	defaultCompletionModel       = "llama3.2"
	defaultCompletionMaxTokens   = 1500
	defaultCompletionTemperature = 0.3

	defaultRAGRetriever = "vector"
	defaultRAGTopK      = 5
	defaultRAGMinScore  = 0.7
	defaultRAGTimeout   = "60s"

	defaultCacheProvider = "none"
	defaultCacheTTL      = "5m"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "askbase.queries"

	defaultIngestWorkers   = 3
	defaultIngestQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:          defaultAPIListen,
			RateLimitMax:    defaultRateLimitMax,
			RateLimitWindow: defaultRateLimitWindow,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Completion: CompletionConfig{
			Provider:    defaultCompletionProvider,
			Target:      defaultOllamaTarget,
			Model:       defaultCompletionModel,
			MaxTokens:   defaultCompletionMaxTokens,
			Temperature: ptr(defaultCompletionTemperature),
		},
		RAG: RAGConfig{
			Retriever:         defaultRAGRetriever,
			TopK:              defaultRAGTopK,
			MinRelevanceScore: defaultRAGMinScore,
			Timeout:           defaultRAGTimeout,
		},
		Cache: CacheConfig{
			Provider: defaultCacheProvider,
			TTL:      defaultCacheTTL,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Ingest: IngestConfig{
			Workers:   defaultIngestWorkers,
			QueueSize: defaultIngestQueueSize,
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
