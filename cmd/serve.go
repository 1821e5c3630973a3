package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"medinotes/internal/adapter/inbound/api"
	"medinotes/internal/adapter/outbound/bedrock"
	"medinotes/internal/adapter/outbound/cache"
	"medinotes/internal/adapter/outbound/messaging"
	"medinotes/internal/adapter/outbound/repository"
	"medinotes/internal/application/common/slogger"
	"medinotes/internal/application/service"
	"medinotes/internal/application/worker"
	"medinotes/internal/config"
	"medinotes/internal/port/outbound"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/sync/errgroup"
)

var promptsFile string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with the note-processing and embeddings pools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), GetConfig())
		},
	}
	cmd.Flags().StringVar(&promptsFile, "prompts", "", "prompt catalog override file (YAML)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(
			semconv.ServiceName("medinotes"),
			semconv.ServiceVersion(appVersion()),
		)),
	)
	otel.SetMeterProvider(meterProvider)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meterProvider.Shutdown(shutdownCtx)
	}()

	pool, err := repository.NewConnectionPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	bedrockClient, err := bedrock.NewClient(ctx, cfg.Bedrock)
	if err != nil {
		return fmt.Errorf("bedrock: %w", err)
	}

	var publisher outbound.MessagePublisher
	var natsPublisher *messaging.NATSEventPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = messaging.NewNATSEventPublisher(cfg.NATS)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		if err := natsPublisher.Connect(); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsPublisher.Disconnect() }()
		if err := natsPublisher.EnsureStream(); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		publisher = natsPublisher
	}

	metrics, err := worker.NewTaskMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	catalog := service.DefaultPromptCatalog()
	if promptsFile != "" {
		catalog, err = service.LoadPromptCatalog(promptsFile)
		if err != nil {
			return fmt.Errorf("prompts: %w", err)
		}
	}

	noteRepo := repository.NewPostgreSQLNoteRepository(pool)
	embeddingStore := repository.NewPostgreSQLEmbeddingStore(pool)

	jobPool, err := newJobPool(cfg, publisher, metrics)
	if err != nil {
		return err
	}
	embeddingsPool, err := newEmbeddingsPool(cfg, publisher, metrics)
	if err != nil {
		return err
	}

	jobPool.Start(ctx)
	embeddingsPool.Start(ctx)
	defer stopPools(cfg, jobPool, embeddingsPool)

	jobJanitor := worker.NewJanitor(jobPool, cfg.Jobs.CleanupInterval, cfg.Jobs.CleanupMaxAge)
	jobJanitor.Start(ctx)
	defer jobJanitor.Stop()
	embeddingsJanitor := worker.NewJanitor(embeddingsPool, cfg.Jobs.CleanupInterval, cfg.Embeddings.CleanupMaxAge)
	embeddingsJanitor.Start(ctx)
	defer embeddingsJanitor.Stop()

	noteService := service.NewNoteProcessorService(jobPool, noteRepo, bedrockClient, catalog)
	embeddingsService := service.NewEmbeddingsService(
		embeddingsPool, noteRepo, bedrockClient, embeddingStore,
		service.NewTextChunker(cfg.Embeddings.ChunkSize, cfg.Embeddings.ChunkOverlap),
	)
	noteService.ChainEmbeddings(embeddingsService)

	redisBackend := cache.NewRedisBackend(cfg.Redis, cfg.Cache)
	defer func() { _ = redisBackend.Close() }()
	conversationRepo := repository.NewPostgreSQLConversationRepository(
		pool, cfg.Database.MessagesTable, cfg.Cache.DurableReadLimit,
	)
	summarizer := service.NewConversationSummarizerService(bedrockClient, cfg.Summarizer)
	chatService := service.NewChatMemoryService([]outbound.CacheBackend{
		cache.NewMemoryBackend(cfg.Cache.MaxEntriesPerSession),
		redisBackend,
		conversationRepo,
	}, summarizer)

	healthService := service.NewHealthCheckService(appVersion(), healthCheckers(pool, redisBackend, natsPublisher)...)

	errorHandler := api.NewDefaultErrorHandler()
	noteHandler := api.NewNoteHandler(noteService, embeddingsService, bedrockClient.Limiter(), errorHandler)
	chatHandler := api.NewChatHandler(chatService, errorHandler)
	healthHandler := api.NewHealthHandler(healthService, errorHandler)

	server := api.NewServer(cfg.API, noteHandler, chatHandler, healthHandler)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		slogger.InfoNoCtx("Shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Jobs.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newJobPool(cfg *config.Config, publisher outbound.MessagePublisher, metrics *worker.TaskMetrics) (*worker.Pool, error) {
	opts := []worker.Option{worker.WithMetrics(metrics)}
	if publisher != nil {
		opts = append(opts, worker.WithPublisher(publisher))
	}
	pool, err := worker.NewPool(worker.Config{
		Workload:        "notes",
		TaskIDPrefix:    "job",
		MaxWorkers:      cfg.Jobs.MaxWorkers,
		MaxQueueSize:    cfg.Jobs.MaxQueueSize,
		ShutdownTimeout: cfg.Jobs.ShutdownTimeout,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("job pool: %w", err)
	}
	return pool, nil
}

func newEmbeddingsPool(cfg *config.Config, publisher outbound.MessagePublisher, metrics *worker.TaskMetrics) (*worker.Pool, error) {
	opts := []worker.Option{
		worker.WithMetrics(metrics),
		worker.WithRetryClassifier(bedrock.IsRetryableError),
	}
	if publisher != nil {
		opts = append(opts, worker.WithPublisher(publisher))
	}
	pool, err := worker.NewPool(worker.Config{
		Workload:        "embeddings",
		TaskIDPrefix:    "emb",
		MaxWorkers:      cfg.Embeddings.MaxWorkers,
		MaxQueueSize:    cfg.Embeddings.MaxQueueSize,
		MaxRetries:      cfg.Embeddings.MaxRetries,
		ShutdownTimeout: cfg.Jobs.ShutdownTimeout,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("embeddings pool: %w", err)
	}
	return pool, nil
}

func stopPools(cfg *config.Config, pools ...*worker.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Jobs.ShutdownTimeout)
	defer cancel()
	for _, pool := range pools {
		if err := pool.Stop(ctx); err != nil {
			slogger.ErrorNoCtx("Pool shutdown incomplete", slogger.Fields{
				"error": err.Error(),
			})
		}
	}
}

func healthCheckers(pool *pgxpool.Pool, redisBackend *cache.RedisBackend, natsPublisher *messaging.NATSEventPublisher) []service.DependencyChecker {
	checkers := []service.DependencyChecker{
		service.DependencyCheckerFunc{
			DependencyName: "database",
			CheckFunc:      pool.Ping,
		},
		service.DependencyCheckerFunc{
			DependencyName: "redis",
			CheckFunc:      redisBackend.Ping,
		},
	}
	if natsPublisher != nil {
		checkers = append(checkers, service.DependencyCheckerFunc{
			DependencyName: "nats",
			CheckFunc: func(context.Context) error {
				health := natsPublisher.GetConnectionHealth()
				if !health.Connected {
					return fmt.Errorf("nats disconnected: %s", health.LastError)
				}
				return nil
			},
		})
	}
	return checkers
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
