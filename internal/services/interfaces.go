package services

import (
	"context"
	"io"
	"time"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/storage"
)

// AttributeService manages the attribute catalog the engine resolves labels against.
type AttributeService interface {
	List(ctx context.Context) ([]domain.Attribute, error)
	Get(ctx context.Context, id string) (domain.Attribute, error)
	Create(ctx context.Context, cmd CreateAttributeCommand) (domain.Attribute, error)
	Update(ctx context.Context, cmd UpdateAttributeCommand) (domain.Attribute, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// CreateAttributeCommand carries a new definition. Nil fields take their defaults.
type CreateAttributeCommand struct {
	Name     string
	Label    *string
	Type     string
	Required *bool
	Priority *int
}

// UpdateAttributeCommand applies a partial update. Nil fields are left unchanged.
type UpdateAttributeCommand struct {
	ID       string
	Name     *string
	Label    *string
	Type     *string
	Required *bool
	Priority *int
}

// ProductService manages products and their bulk import.
type ProductService interface {
	List(ctx context.Context, query string) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Import(ctx context.Context, cmd ImportProductsCommand) (ImportResult, error)
	Delete(ctx context.Context, id string) error
	Flush(ctx context.Context) (int, error)
}

// ProductInput is one product to import.
type ProductInput struct {
	Name       string
	Attributes map[string]string
}

type ImportProductsCommand struct {
	Products []ProductInput
	// Source labels metrics and events ("json", "csv", "seed").
	Source string
}

type ImportResult struct {
	Count int
	IDs   []string
}

// TemplateService manages label templates.
type TemplateService interface {
	List(ctx context.Context) ([]domain.LabelTemplate, error)
	Get(ctx context.Context, id string) (domain.LabelTemplate, error)
	Create(ctx context.Context, cmd TemplateCommand) (domain.LabelTemplate, error)
	Update(ctx context.Context, id string, cmd TemplateCommand) (domain.LabelTemplate, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string) (domain.LabelTemplate, error)
}

type TemplateCommand struct {
	Name string
	HTML string
}

// LabelService renders templates against products and prints them.
type LabelService interface {
	Preview(ctx context.Context, cmd RenderCommand) (RenderResult, error)
	GeneratePDF(ctx context.Context, cmd PDFCommand) (PDFResult, error)
}

// RenderCommand selects the template source and product. HTML wins over TemplateID when both are set.
type RenderCommand struct {
	TemplateID string
	HTML       string
	ProductID  string
}

type RenderResult struct {
	HTML       string
	Unresolved []string
	Template   *domain.LabelTemplate
	Product    *domain.Product
}

type PDFCommand struct {
	RenderCommand
	Filename string
}

type PDFResult struct {
	Data     []byte
	Filename string
	// Export is set when the PDF was archived to object storage.
	Export *domain.LabelExport
}

// CSVImportService parses spreadsheet exports into products.
type CSVImportService interface {
	Preview(ctx context.Context, src io.Reader, opts CSVOptions) (CSVPreview, error)
	Import(ctx context.Context, src io.Reader, opts CSVOptions) (CSVImportResult, error)
}

type CSVOptions struct {
	// NameColumn names the header holding product names.
	NameColumn string
	// ContentType is the upload's declared type, used for charset detection.
	ContentType string
	FileName    string
}

// CSVPreview is the parsed upload before anything is stored.
type CSVPreview struct {
	Delimiter  string
	Encoding   string
	Headers    []string
	NameColumn string
	// Mapping maps each non-name header to the attribute label it is stored under.
	Mapping  map[string]string
	Products []ProductInput
	Skipped  int
}

type CSVImportResult struct {
	Preview CSVPreview
	Count   int
	Source  *storage.Object
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// SeedService loads the sample catalog.
type SeedService interface {
	Seed(ctx context.Context) (SeedResult, error)
}

type SeedResult struct {
	AttributesCreated int
	AttributesSkipped int
	TemplatesCreated  int
	TemplatesSkipped  int
	ProductsCreated   int
	ProductsSkipped   int
}

// PDFRenderer prints a complete HTML document.
type PDFRenderer interface {
	Render(ctx context.Context, document string) ([]byte, error)
}

// ObjectStore archives artefacts.
type ObjectStore interface {
	Put(ctx context.Context, upload storage.Upload) (storage.Object, error)
}

// EventPublisher emits label events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LabelEvent) (string, error)
}

// Logger is the structured logging hook services report through.
type Logger func(ctx context.Context, event string, fields map[string]any)

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

func noopLogger(context.Context, string, map[string]any) {}
