package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/meeting-insights/config"
	"github.com/otherjamesbrown/meeting-insights/credentials"
	"github.com/otherjamesbrown/meeting-insights/pkg/db"
	"github.com/otherjamesbrown/meeting-insights/pkg/insights"
	"github.com/otherjamesbrown/meeting-insights/pkg/llm"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/metrics"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
	"github.com/otherjamesbrown/meeting-insights/pkg/rag"
	"github.com/otherjamesbrown/meeting-insights/pkg/store"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcription"
	"github.com/otherjamesbrown/meeting-insights/pkg/vector"
)

// ResultsStore extends the pipeline's store contract with the management
// operations the CLI needs.
type ResultsStore interface {
	pipeline.ResultsStore
	DeleteMeeting(ctx context.Context, meetingID string) error
	ListMeetings(ctx context.Context) ([]string, error)
}

// App holds the wired components shared by the commands. Fields that depend
// on optional configuration (LLM providers, Redis, Postgres) are nil when
// the corresponding config is absent.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Index   *vector.Index
	Tracker *pipeline.Tracker
	Store   ResultsStore

	// LLM, Runner, and Composer require at least one configured provider.
	LLM      *llm.Client
	Runner   *pipeline.Runner
	Composer *rag.Composer

	// StatusCache is set when Redis is configured.
	StatusCache *store.StatusCache

	pool        *pgxpool.Pool
	redisClient *redis.Client
}

// AppDeps holds injectable construction functions so tests can substitute
// fakes without touching global state.
type AppDeps struct {
	LoadConfig func() (*config.Config, error)
	InitApp    func(ctx context.Context, cfg *config.Config) (*App, error)
}

// DefaultAppDeps returns the production dependencies.
func DefaultAppDeps() *AppDeps {
	return &AppDeps{
		LoadConfig: config.LoadConfig,
		InitApp:    NewApp,
	}
}

// setup loads config, applies the -o flag, and wires the app.
func (d *AppDeps) setup(ctx context.Context, outputFlag string) (*App, config.OutputFormat, error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, "", fmt.Errorf("loading configuration: %w", err)
	}
	app, err := d.InitApp(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	return app, resolveFormat(cfg, outputFlag), nil
}

// NewApp wires the application from configuration. Logs go to stderr so
// stdout stays clean for command output.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "insights",
		Environment: "cli",
		JSONFormat:  false,
		Output:      os.Stderr,
	})

	app := &App{Config: cfg, Logger: logger}

	var embedder vector.EmbeddingService
	if cfg.Embedding.Endpoint != "" {
		apiKey := cfg.Embedding.APIKey
		if apiKey == "" {
			key, err := credentials.ResolveOptional(credentials.EmbeddingAPIKey)
			if err != nil {
				return nil, err
			}
			apiKey = key
		}
		embedder = vector.NewHTTPEmbedder(cfg.Embedding.Endpoint, apiKey, cfg.Embedding.Model)
	} else {
		embedder = vector.NewLocalEmbedder(cfg.Embedding.LocalDim)
	}

	index, err := vector.NewIndex(cfg.VectorDir, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	app.Index = index

	app.Tracker = pipeline.NewTracker(logger)
	if _, err := metrics.RegisterJobStatsCollector(app.Tracker); err != nil {
		return nil, fmt.Errorf("registering job metrics: %w", err)
	}

	if cfg.Database != nil {
		pool, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("preparing database schema: %w", err)
		}
		app.pool = pool
		app.Store = store.NewPGStore(pool)
	} else {
		app.Store = store.NewFSStore(cfg.StorageDir, logger)
	}

	if cfg.Redis.IsConfigured() {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.StatusCache = store.NewStatusCache(app.redisClient, 0)
	}

	if len(cfg.Providers) > 0 {
		providers := make([]llm.Provider, len(cfg.Providers))
		copy(providers, cfg.Providers)
		for i := range providers {
			if providers[i].APIKey != "" {
				continue
			}
			key, err := credentials.ResolveOptional(credentials.ProviderCredential(providers[i].Name))
			if err != nil {
				return nil, err
			}
			providers[i].APIKey = key
		}

		client, err := llm.NewClient(providers,
			llm.WithLogger(logger),
			llm.WithRetryPolicy(cfg.Retry),
			llm.WithCacheCapacity(cfg.CacheCapacity),
		)
		if err != nil {
			return nil, fmt.Errorf("building llm client: %w", err)
		}
		app.LLM = client
		app.Composer = rag.NewComposer(index, client, logger)

		transcriberKey := cfg.Transcription.APIKey
		if transcriberKey == "" {
			key, err := credentials.ResolveOptional(credentials.TranscriptionAPIKey)
			if err != nil {
				return nil, err
			}
			transcriberKey = key
		}
		transcriber := transcription.NewService(transcription.Config{
			Endpoint: cfg.Transcription.Endpoint,
			APIKey:   transcriberKey,
			Model:    cfg.Transcription.Model,
			Timeout:  cfg.Transcription.Timeout,
		}, logger)

		orchestrator := insights.NewOrchestrator(
			insights.DefaultAgents(client),
			insights.OrchestratorConfig{AgentTimeout: cfg.AgentTimeout},
			logger,
		)

		app.Runner = pipeline.NewRunner(app.Tracker, transcriber, orchestrator, app.Store, index,
			pipeline.RunnerConfig{PipelineTimeout: cfg.PipelineTimeout}, logger)
	}

	return app, nil
}

// RequireRunner returns the pipeline runner or a setup hint when no LLM
// providers are configured.
func (a *App) RequireRunner() (*pipeline.Runner, error) {
	if a.Runner == nil {
		return nil, fmt.Errorf("no LLM providers configured: add a providers entry to the config file")
	}
	return a.Runner, nil
}

// RequireComposer returns the chat composer or a setup hint when no LLM
// providers are configured.
func (a *App) RequireComposer() (*rag.Composer, error) {
	if a.Composer == nil {
		return nil, fmt.Errorf("no LLM providers configured: add a providers entry to the config file")
	}
	return a.Composer, nil
}

// Close releases database and Redis connections.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}
