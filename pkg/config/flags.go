package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "askbase ask", "askbase docs" and "askbase feedback").
type Flag struct {
	// Name is the long flag name (e.g. "api-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPITarget           = "api-target"
	FlagSQLite              = "sqlite"
	FlagPostgres            = "postgres"
	FlagVectorStoreProv     = "vector-store-provider"
	FlagVectorStoreTgt      = "vector-store-target"
	FlagVectorCollection    = "vector-store-collection"
	FlagEmbeddingProv       = "embedding-provider"
	FlagEmbeddingTgt        = "embedding-target"
	FlagEmbeddingModel      = "embedding-model"
	FlagEmbeddingDims       = "embedding-dimensions"
	FlagCompletionProv      = "completion-provider"
	FlagCompletionTgt       = "completion-target"
	FlagCompletionModel     = "completion-model"
	FlagCompletionMaxTok    = "max-tokens"
	FlagCompletionTemp      = "temperature"
	FlagRetriever           = "retriever"
	FlagTopK                = "top-k"
	FlagMinRelevanceScore   = "min-relevance-score"
	FlagCacheProvider       = "cache-provider"
	FlagCacheTarget         = "cache-target"
	FlagEventsProvider      = "events-provider"
	FlagEventsBrokers       = "events-brokers"
	FlagIngestWorkers       = "ingest-workers"
	FlagRateLimitMax        = "rate-limit-max"
	FlagRateLimitWindow     = "rate-limit-window"
	FlagDisableMCP          = "disable-mcp"
	FlagAPIListenStandalone = "api-listen-standalone"
)

// ServeFlags is the registry used by "askbase serve" and "askbaseapi".
var ServeFlags = FlagSet{
	FlagAPIListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	FlagSQLite:              {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database for query logs and feedback (default: in-memory)"},
	FlagPostgres:            {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for query logs and feedback"},
	FlagVectorStoreProv:     {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (qdrant, chroma, sqlite, memory)"},
	FlagVectorStoreTgt:      {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store URL or SQLite path"},
	FlagVectorCollection:    {Name: "vector-store-collection", ViperKey: "vector_store.collection", Description: "Vector store collection name"},
	FlagEmbeddingProv:       {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai, zero)"},
	FlagEmbeddingTgt:        {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:      {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:       {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagCompletionProv:      {Name: "completion-provider", ViperKey: "completion.provider", Description: "Completion provider (ollama, openai, anthropic)"},
	FlagCompletionTgt:       {Name: "completion-target", ViperKey: "completion.target", Description: "Completion provider URL"},
	FlagCompletionModel:     {Name: "completion-model", ViperKey: "completion.model", Description: "Completion model name"},
	FlagCompletionMaxTok:    {Name: "max-tokens", ViperKey: "completion.max_tokens", Description: "Maximum tokens per generated answer"},
	FlagCompletionTemp:      {Name: "temperature", ViperKey: "completion.temperature", Description: "Sampling temperature for answers"},
	FlagRetriever:           {Name: "retriever", ViperKey: "rag.retriever", Description: "Retrieval strategy (vector, keyword)"},
	FlagTopK:                {Name: "top-k", Shorthand: "k", ViperKey: "rag.top_k", Description: "Maximum documents retrieved per question"},
	FlagMinRelevanceScore:   {Name: "min-relevance-score", ViperKey: "rag.min_relevance_score", Description: "Minimum relevance score for retrieved documents"},
	FlagCacheProvider:       {Name: "cache-provider", ViperKey: "cache.provider", Description: "Answer cache provider (none, memory, redis)"},
	FlagCacheTarget:         {Name: "cache-target", ViperKey: "cache.target", Description: "Answer cache address (redis host:port)"},
	FlagEventsProvider:      {Name: "events-provider", ViperKey: "events.provider", Description: "Query event publisher (none, kafka)"},
	FlagEventsBrokers:       {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagIngestWorkers:       {Name: "ingest-workers", ViperKey: "ingest.workers", Description: "Number of asynchronous ingestion workers"},
	FlagRateLimitMax:        {Name: "rate-limit-max", ViperKey: "api.rate_limit_max", Description: "Maximum query requests per caller per window"},
	FlagRateLimitWindow:     {Name: "rate-limit-window", ViperKey: "api.rate_limit_window", Description: "Rate limit sliding window (e.g. 1m)"},
	FlagDisableMCP:          {Name: "disable-mcp", ViperKey: "api.disable_mcp", Description: "Serve /mcp without the ask and search tools"},
}

// ClientFlags is the registry used by commands that talk to a running server.
var ClientFlags = FlagSet{
	FlagAPITarget: {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "askbase API server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultFloat(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	v := viper.New()
	setViperDefaults(v)
	defaultVal := v.GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultFloat returns the default float64 value for a viper key from NewDefaultConfig.
func defaultFloat(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}
