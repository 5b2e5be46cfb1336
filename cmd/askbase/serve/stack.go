package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/askbase/api"
	"github.com/papercomputeco/askbase/pkg/cache"
	"github.com/papercomputeco/askbase/pkg/cache/memory"
	"github.com/papercomputeco/askbase/pkg/cache/redis"
	"github.com/papercomputeco/askbase/pkg/config"
	"github.com/papercomputeco/askbase/pkg/credentials"
	"github.com/papercomputeco/askbase/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/askbase/pkg/embeddings/utils"
	"github.com/papercomputeco/askbase/pkg/eventstream"
	"github.com/papercomputeco/askbase/pkg/eventstream/kafka"
	"github.com/papercomputeco/askbase/pkg/eventstream/nop"
	"github.com/papercomputeco/askbase/pkg/ingest"
	"github.com/papercomputeco/askbase/pkg/ingest/worker"
	"github.com/papercomputeco/askbase/pkg/llm/provider"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/storage"
	storageutils "github.com/papercomputeco/askbase/pkg/storage/utils"
	"github.com/papercomputeco/askbase/pkg/vector"
	vectorutils "github.com/papercomputeco/askbase/pkg/vector/utils"
)

const serviceName = "askbase"

// Retrieval strategies accepted by rag.retriever.
const (
	RetrieverVector  = "vector"
	RetrieverKeyword = "keyword"
)

// Provider names shared by the cache and events sections.
const (
	providerNone   = "none"
	providerMemory = "memory"
	providerRedis  = "redis"
	providerKafka  = "kafka"
)

// stack owns every long-lived component behind the API server.
type stack struct {
	server    *api.Server
	embedder  embeddings.Embedder
	vector    vector.Driver
	storage   storage.Driver
	cache     cache.Cache
	publisher eventstream.Publisher
	pool      *worker.Pool
	logger    *slog.Logger
}

// newStack builds the API server and its collaborators from cfg. Partially
// built stacks are closed before an error is returned.
func newStack(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (_ *stack, err error) {
	s := &stack{logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	embeddingKey := cfg.Embedding.APIKey
	if cfg.Embedding.Provider == provider.OpenAI {
		embeddingKey = creds.ResolveKey(provider.OpenAI, cfg.Embedding.APIKey)
	}
	s.embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       embeddingKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	s.vector, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		APIKey:       cfg.VectorStore.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	completer, err := provider.New(&provider.NewCompleterOpts{
		ProviderType: cfg.Completion.Provider,
		TargetURL:    cfg.Completion.Target,
		APIKey:       creds.ResolveKey(cfg.Completion.Provider, cfg.Completion.APIKey),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion provider: %w", err)
	}

	var retriever rag.Retriever
	switch cfg.RAG.Retriever {
	case RetrieverVector, "":
		retriever = rag.NewVectorRetriever(rag.VectorRetrieverConfig{
			Embedder:          s.embedder,
			Driver:            s.vector,
			TopK:              int(cfg.RAG.TopK),
			MinRelevanceScore: cfg.RAG.MinRelevanceScore,
			Logger:            logger,
		})
	case RetrieverKeyword:
		retriever = rag.NewKeywordRetriever(rag.KeywordRetrieverConfig{
			Driver: s.vector,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unsupported retriever: %q (supported: %s, %s)", cfg.RAG.Retriever, RetrieverVector, RetrieverKeyword)
	}

	generator := rag.NewGenerator(rag.GeneratorConfig{
		Completer:   completer,
		Model:       cfg.Completion.Model,
		MaxTokens:   int(cfg.Completion.MaxTokens),
		Temperature: cfg.Completion.Temperature,
		Logger:      logger,
	})

	pipeline := rag.NewPipeline(retriever, generator,
		rag.WithLogger(logger),
		rag.WithStateObserver(func(question string, from, to rag.State) {
			logger.Debug("pipeline transition",
				"from", from.String(),
				"to", to.String(),
				"question_length", len(question),
			)
		}),
	)

	s.storage, err = storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
		PostgresDSN: cfg.Storage.PostgresDSN,
		SQLitePath:  cfg.Storage.SQLitePath,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage driver: %w", err)
	}

	s.cache, err = newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	s.publisher, err = newPublisher(cfg.Events, logger)
	if err != nil {
		return nil, err
	}

	ingester := ingest.NewService(ingest.Config{
		Embedder: s.embedder,
		Driver:   s.vector,
		Logger:   logger,
		OnChange: s.clearCache,
	})

	s.pool, err = worker.NewPool(&worker.Config{
		Indexer:    ingester,
		NumWorkers: cfg.Ingest.Workers,
		QueueSize:  cfg.Ingest.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ingest worker pool: %w", err)
	}

	rateLimitWindow, err := parseDuration("api.rate_limit_window", cfg.API.RateLimitWindow)
	if err != nil {
		return nil, err
	}
	queryTimeout, err := parseDuration("rag.timeout", cfg.RAG.Timeout)
	if err != nil {
		return nil, err
	}

	s.server, err = api.NewServer(api.Config{
		ListenAddr:      cfg.API.Listen,
		RateLimitMax:    int(cfg.API.RateLimitMax),
		RateLimitWindow: rateLimitWindow,
		DisableMCP:      cfg.API.DisableMCP,
		QueryTimeout:    queryTimeout,
		Pipeline:        pipeline,
		Retriever:       retriever,
		Completer:       completer,
		Model:           cfg.Completion.Model,
		VectorDriver:    s.vector,
		Ingest:          ingester,
		IngestPool:      s.pool,
		Cache:           s.cache,
		Publisher:       s.publisher,
		EventSource: eventstream.EventSource{
			Service:   serviceName,
			Retriever: retrieverName(cfg.RAG.Retriever),
			Provider:  completer.Name(),
			Model:     cfg.Completion.Model,
		},
		Settings: config.Sanitized(cfg),
	}, s.storage, logger)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	return s, nil
}

// clearCache drops cached answers after the knowledge base changes.
func (s *stack) clearCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear answer cache", "error", err)
	}
}

// Close stops the worker pool, then releases every backend. It is safe to
// call on a partially built stack.
func (s *stack) Close() {
	if s.pool != nil {
		s.pool.Close()
	}

	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	if s.vector != nil {
		errs = append(errs, s.vector.Close())
	}
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("error releasing resources", "error", err)
	}
}

func newCache(ctx context.Context, c config.CacheConfig, logger *slog.Logger) (cache.Cache, error) {
	ttl, err := parseDuration("cache.ttl", c.TTL)
	if err != nil {
		return nil, err
	}

	switch c.Provider {
	case providerNone, "":
		return nil, nil
	case providerMemory:
		logger.Info("using in-memory answer cache", "ttl", ttl)
		return memory.New(memory.DefaultMaxSize, ttl), nil
	case providerRedis:
		rc, err := redis.New(ctx, redis.Config{Addr: c.Target, TTL: ttl}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating redis cache: %w", err)
		}
		logger.Info("using redis answer cache", "addr", c.Target, "ttl", ttl)
		return rc, nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %q (supported: none, memory, redis)", c.Provider)
	}
}

func newPublisher(c config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case providerNone, "":
		return nop.NewPublisher(), nil
	case providerKafka:
		brokers := splitList(c.Brokers)
		p, err := kafka.NewPublisher(kafka.Config{Brokers: brokers, Topic: c.Topic}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		logger.Info("publishing query events to kafka", "brokers", brokers, "topic", c.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %q (supported: none, kafka)", c.Provider)
	}
}

// parseDuration parses a config duration. Empty selects the consumer's default.
func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func retrieverName(r string) string {
	if r == "" {
		return RetrieverVector
	}
	return r
}
