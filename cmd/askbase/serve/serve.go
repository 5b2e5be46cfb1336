// Package servecmder provides the serve command that runs the askbase API server.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/askbase/pkg/config"
	"github.com/papercomputeco/askbase/pkg/logger"
)

type serveCommander struct {
	// Flag targets. Resolved values are read back through viper so that
	// flags, ASKBASE_* environment variables and config.toml share one
	// precedence chain.
	listen            string
	sqlitePath        string
	postgresDSN       string
	vectorProvider    string
	vectorTarget      string
	vectorCollection  string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	completionProv    string
	completionTarget  string
	completionModel   string
	maxTokens         uint
	temperature       float64
	retriever         string
	topK              uint
	minScore          float64
	cacheProvider     string
	cacheTarget       string
	eventsProvider    string
	eventsBrokers     string
	ingestWorkers     uint
	rateLimitMax      uint
	rateLimitWindow   string
	disableMCP        bool

	logFormat string
	logFile   string

	configDir string
	debug     bool
	viper     *viper.Viper
	logger    *slog.Logger
}

// serveFlagKeys are the ServeFlags registry entries bound by the serve command.
var serveFlagKeys = []string{
	config.FlagAPIListenStandalone,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagCompletionProv,
	config.FlagCompletionTgt,
	config.FlagCompletionModel,
	config.FlagCompletionMaxTok,
	config.FlagCompletionTemp,
	config.FlagRetriever,
	config.FlagTopK,
	config.FlagMinRelevanceScore,
	config.FlagCacheProvider,
	config.FlagCacheTarget,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagIngestWorkers,
	config.FlagRateLimitMax,
	config.FlagRateLimitWindow,
	config.FlagDisableMCP,
}

const serveLongDesc string = `Run the askbase API server.

The server answers questions against the knowledge base, manages its
documents, records query logs and feedback, and exposes the ask and search
tools over MCP at /mcp (--disable-mcp keeps the endpoint but drops the tools).

Settings are resolved from flags, then ASKBASE_* environment variables,
then config.toml in the .askbase/ directory, then built-in defaults.

Examples:
  askbase serve
  askbase serve --listen :9000 --sqlite ./askbase.db
  askbase serve --completion-provider anthropic --completion-model claude-sonnet-4-5
  askbase serve --vector-store-provider sqlite --vector-store-target ./vectors.db`

const serveShortDesc string = "Run the askbase API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	addServeFlags(cmd, cmder)
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", string(logger.FormatText), "Log output format (text, json, pretty)")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

// addServeFlags registers the serve flags from the config.ServeFlags registry.
func addServeFlags(cmd *cobra.Command, cmder *serveCommander) {
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListenStandalone, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagVectorCollection, &cmder.vectorCollection)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCompletionProv, &cmder.completionProv)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCompletionTgt, &cmder.completionTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCompletionModel, &cmder.completionModel)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagCompletionMaxTok, &cmder.maxTokens)
	config.AddFloatFlag(cmd, config.ServeFlags, config.FlagCompletionTemp, &cmder.temperature)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRetriever, &cmder.retriever)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagTopK, &cmder.topK)
	config.AddFloatFlag(cmd, config.ServeFlags, config.FlagMinRelevanceScore, &cmder.minScore)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCacheProvider, &cmder.cacheProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCacheTarget, &cmder.cacheTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagIngestWorkers, &cmder.ingestWorkers)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagRateLimitMax, &cmder.rateLimitMax)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRateLimitWindow, &cmder.rateLimitWindow)
	config.AddBoolFlag(cmd, config.ServeFlags, config.FlagDisableMCP, &cmder.disableMCP)
}

func (c *serveCommander) run() error {
	l, closeLog, err := newServeLogger(os.Stdout, c.logFormat, c.logFile, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = l

	cfg := config.FromViper(c.viper)

	ctx := context.Background()
	s, err := newStack(ctx, cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	c.logger.Info("starting API server",
		"listen", cfg.API.Listen,
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"completion", cfg.Completion.Provider,
		"model", cfg.Completion.Model,
		"retriever", retrieverName(cfg.RAG.Retriever),
		"cache", cfg.Cache.Provider,
		"events", cfg.Events.Provider,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		if err := s.server.Shutdown(); err != nil {
			c.logger.Warn("error shutting down API server", "error", err)
		}
		return nil
	}
}

// newServeLogger builds the server logger in the given format. With a log
// file, records are also appended to it as JSON.
func newServeLogger(stdout io.Writer, format, file string, debug bool) (*slog.Logger, func(), error) {
	f, err := logger.ParseFormat(format)
	if err != nil {
		return nil, nil, err
	}

	l := logger.New(
		logger.WithWriter(stdout),
		logger.WithFormat(f),
		logger.WithDebug(debug),
		logger.WithService(serviceName),
	)
	if file == "" {
		return l, func() {}, nil
	}

	out, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	fileLogger := logger.New(
		logger.WithWriter(out),
		logger.WithFormat(logger.FormatJSON),
		logger.WithDebug(debug),
		logger.WithService(serviceName),
	)
	return logger.Multi(l, fileLogger), func() { _ = out.Close() }, nil
}
