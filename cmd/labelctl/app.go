package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hansupo/shad-label/internal/platform/config"
	pfirestore "github.com/hansupo/shad-label/internal/platform/firestore"
	"github.com/hansupo/shad-label/internal/platform/observability"
	"github.com/hansupo/shad-label/internal/platform/pdf"
	"github.com/hansupo/shad-label/internal/render"
	"github.com/hansupo/shad-label/internal/repositories"
	firestoreRepo "github.com/hansupo/shad-label/internal/repositories/firestore"
	"github.com/hansupo/shad-label/internal/repositories/sqlite"
	"github.com/hansupo/shad-label/internal/services"
)

type rootFlags struct {
	driver   string
	dbPath   string
	logLevel string
}

// app holds the services one command invocation works with.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  repositories.Registry

	attributes services.AttributeService
	products   services.ProductService
	templates  services.TemplateService
	csv        services.CSVImportService
	labels     services.LabelService
	renderer   *pdf.RodRenderer
}

func openApp(ctx context.Context, flags rootFlags) (*app, error) {
	logger, err := observability.NewLogger(
		observability.WithConsoleEncoding(),
		observability.WithLevel(flags.logLevel),
		observability.WithOutputPaths("stderr"),
	)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	overrides := map[string]string{}
	if flags.driver != "" {
		overrides["LABELS_STORE_DRIVER"] = flags.driver
	}
	if flags.dbPath != "" {
		overrides["LABELS_STORE_SQLITE_PATH"] = flags.dbPath
	}
	cfg, err := config.Load(ctx, config.WithEnvMap(overrides))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var store repositories.Registry
	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverFirestore:
		store, err = firestoreRepo.NewRegistry(pfirestore.NewProvider(cfg.Firestore))
	default:
		store, err = sqlite.Open(ctx, cfg.Store.SQLitePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: store}
	serviceLogger := observability.ServiceLogger(logger)

	if a.attributes, err = services.NewAttributeService(services.AttributeServiceDeps{Attributes: store.Attributes(), Logger: serviceLogger}); err != nil {
		return nil, a.fail(err)
	}
	if a.products, err = services.NewProductService(services.ProductServiceDeps{Products: store.Products(), Logger: serviceLogger}); err != nil {
		return nil, a.fail(err)
	}
	if a.templates, err = services.NewTemplateService(services.TemplateServiceDeps{Templates: store.Templates(), Logger: serviceLogger}); err != nil {
		return nil, a.fail(err)
	}
	if a.csv, err = services.NewCSVImportService(services.CSVImportServiceDeps{
		Attributes: store.Attributes(),
		Products:   a.products,
		Logger:     serviceLogger,
	}); err != nil {
		return nil, a.fail(err)
	}

	a.renderer = pdf.NewRodRenderer(cfg.PDF, pdf.WithLogger(logger.Named("pdf")))
	if a.labels, err = services.NewLabelService(services.LabelServiceDeps{
		Engine:     render.NewEngine(render.WithSearchURL(cfg.Render.SearchURL), render.WithEmptyMessage(cfg.Render.EmptyMessage)),
		Attributes: store.Attributes(),
		Products:   store.Products(),
		Templates:  store.Templates(),
		Renderer:   a.renderer,
		Logger:     serviceLogger,
	}); err != nil {
		return nil, a.fail(err)
	}
	return a, nil
}

func (a *app) fail(err error) error {
	a.Close()
	return err
}

func (a *app) Close() {
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.logger.Warn("pdf renderer close error", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close error", zap.Error(err))
	}
	_ = a.logger.Sync()
}
