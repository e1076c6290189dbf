package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/hansupo/shad-label/internal/handlers"
	"github.com/hansupo/shad-label/internal/platform/config"
	pfirestore "github.com/hansupo/shad-label/internal/platform/firestore"
	"github.com/hansupo/shad-label/internal/platform/idempotency"
	"github.com/hansupo/shad-label/internal/platform/jobs"
	"github.com/hansupo/shad-label/internal/platform/metrics"
	"github.com/hansupo/shad-label/internal/platform/observability"
	"github.com/hansupo/shad-label/internal/platform/pdf"
	"github.com/hansupo/shad-label/internal/platform/secrets"
	"github.com/hansupo/shad-label/internal/platform/storage"
	"github.com/hansupo/shad-label/internal/render"
	"github.com/hansupo/shad-label/internal/repositories"
	firestoreRepo "github.com/hansupo/shad-label/internal/repositories/firestore"
	"github.com/hansupo/shad-label/internal/repositories/sqlite"
	"github.com/hansupo/shad-label/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	resolver, err := newSecretResolver(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret resolver", zap.Error(err))
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(resolver))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := services.BuildInfo{
		Version:     cfg.Build.Version,
		CommitSHA:   cfg.Build.CommitSHA,
		Environment: cfg.Build.Environment,
		StartedAt:   startedAt,
	}

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New()
	}
	serviceLogger := observability.ServiceLogger(logger.Named("services"))

	store, idemStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	var exports services.ObjectStore
	if bucket := strings.TrimSpace(cfg.Storage.ExportsBucket); bucket != "" {
		storageClient, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		exporter, err := storage.NewExporter(storageClient, bucket)
		if err != nil {
			logger.Fatal("failed to initialise storage exporter", zap.Error(err))
		}
		exports = exporter
	}

	var events services.EventPublisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.LabelTopic != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewLabelEventPublisher(pubsubClient.Topic(cfg.PubSub.LabelTopic))
		if err != nil {
			logger.Fatal("failed to initialise label event publisher", zap.Error(err))
		}
		defer publisher.Stop()
		events = publisher
	}

	renderer := pdf.NewRodRenderer(cfg.PDF, pdf.WithLogger(logger.Named("pdf")))
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Warn("pdf renderer close error", zap.Error(err))
		}
	}()

	engine := render.NewEngine(
		render.WithSearchURL(cfg.Render.SearchURL),
		render.WithEmptyMessage(cfg.Render.EmptyMessage),
	)

	attributeService, err := services.NewAttributeService(services.AttributeServiceDeps{
		Attributes: store.Attributes(),
		Logger:     serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise attribute service", zap.Error(err))
	}
	productService, err := services.NewProductService(services.ProductServiceDeps{
		Products: store.Products(),
		Events:   events,
		Metrics:  appMetrics,
		Logger:   serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise product service", zap.Error(err))
	}
	templateService, err := services.NewTemplateService(services.TemplateServiceDeps{
		Templates: store.Templates(),
		Logger:    serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise template service", zap.Error(err))
	}
	csvService, err := services.NewCSVImportService(services.CSVImportServiceDeps{
		Attributes: store.Attributes(),
		Products:   productService,
		Sources:    exports,
		Logger:     serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise csv import service", zap.Error(err))
	}
	labelService, err := services.NewLabelService(services.LabelServiceDeps{
		Engine:     engine,
		Attributes: store.Attributes(),
		Products:   store.Products(),
		Templates:  store.Templates(),
		Renderer:   renderer,
		Exports:    exports,
		Events:     events,
		Metrics:    appMetrics,
		Logger:     serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise label service", zap.Error(err))
	}

	systemService, err := newSystemService(store, renderer, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	idempotencyMiddleware := idempotency.Middleware(
		idemStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		idempotency.RunCleanup(cleanupCtx, idemStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize, logger.Named("idempotency"))
	}()

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}
	if appMetrics != nil {
		middlewares = append(middlewares, appMetrics.Middleware)
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)
	productHandlers := handlers.NewProductHandlers(productService, csvService,
		handlers.WithImportMiddleware(idempotencyMiddleware),
		handlers.WithMaxUploadBytes(cfg.Import.MaxUploadBytes),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAttributeRoutes(handlers.NewAttributeHandlers(attributeService).Routes),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithTemplateRoutes(handlers.NewTemplateHandlers(templateService).Routes),
		handlers.WithLabelRoutes(handlers.NewLabelHandlers(labelService).Routes),
		handlers.WithHelpRoutes(handlers.NewHelpHandlers().Routes),
	}
	if appMetrics != nil {
		opts = append(opts, handlers.WithMetricsHandler(cfg.Metrics.Path, appMetrics.Handler()))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("label api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore returns the repository registry for the configured driver together with the
// idempotency store that matches its durability.
func openStore(ctx context.Context, cfg config.Config) (repositories.Registry, idempotency.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		registry, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close()
			return nil, nil, err
		}
		return registry, idempotency.NewFirestoreStore(provider), nil
	case config.DriverSQLite, "":
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, idempotency.NewMemoryStore(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func newSystemService(store repositories.Registry, renderer *pdf.RodRenderer, build services.BuildInfo) (services.SystemService, error) {
	healthRepo, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "store", Check: store.Ping},
		{Name: "browser", Optional: true, Timeout: 5 * time.Second, Check: renderer.Ping},
	})
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Build:            build,
	})
}

func newSecretResolver(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Resolver, error) {
	project := strings.TrimSpace(env["LABELS_SECRETS_PROJECT_ID"])
	if project == "" {
		project = strings.TrimSpace(env["LABELS_FIRESTORE_PROJECT_ID"])
	}
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(project),
	}
	if path := strings.TrimSpace(env["LABELS_SECRETS_FALLBACK_FILE"]); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	if project == "" {
		opts = append(opts, secrets.WithoutRemote())
	}
	return secrets.NewResolver(ctx, opts...)
}
