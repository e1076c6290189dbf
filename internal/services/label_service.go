package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/metrics"
	"github.com/hansupo/shad-label/internal/platform/observability"
	"github.com/hansupo/shad-label/internal/platform/pdf"
	"github.com/hansupo/shad-label/internal/platform/storage"
	"github.com/hansupo/shad-label/internal/render"
	"github.com/hansupo/shad-label/internal/repositories"
)

const (
	msgLabelHTMLRequired   = "HTML content is required"
	msgLabelPDFFailed      = "Failed to generate PDF"
	msgLabelPDFUnavailable = "PDF generation is not configured"
	defaultPDFFilename     = "label.pdf"

	renderModeTemplate = "template"
	renderModeHTML     = "html"
)

var filenameUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

type LabelServiceDeps struct {
	Engine     *render.Engine
	Attributes repositories.AttributeRepository
	Products   repositories.ProductRepository
	Templates  repositories.TemplateRepository
	// Renderer prints PDFs. GeneratePDF fails with ErrLabelPDFUnavailable when nil.
	Renderer PDFRenderer
	// Exports archives generated PDFs when set. Archive failures are logged, not returned.
	Exports     ObjectStore
	Events      EventPublisher
	Metrics     *metrics.Metrics
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type labelService struct {
	engine     *render.Engine
	attributes repositories.AttributeRepository
	products   repositories.ProductRepository
	templates  repositories.TemplateRepository
	renderer   PDFRenderer
	exports    ObjectStore
	events     EventPublisher
	metrics    *metrics.Metrics
	now        func() time.Time
	newID      func() string
	logger     Logger
}

var _ LabelService = (*labelService)(nil)

func NewLabelService(deps LabelServiceDeps) (LabelService, error) {
	if deps.Attributes == nil || deps.Products == nil || deps.Templates == nil {
		return nil, errors.New("label service: attribute, product and template repositories are required")
	}
	engine := deps.Engine
	if engine == nil {
		engine = render.NewEngine()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &labelService{
		engine:     engine,
		attributes: deps.Attributes,
		products:   deps.Products,
		templates:  deps.Templates,
		renderer:   deps.Renderer,
		exports:    deps.Exports,
		events:     deps.Events,
		metrics:    deps.Metrics,
		now:        func() time.Time { return clock().UTC() },
		newID:      idGen,
		logger:     logger,
	}, nil
}

// Preview renders the template, or raw HTML, against the product. Without a product the source is
// returned unrendered.
func (s *labelService) Preview(ctx context.Context, cmd RenderCommand) (result RenderResult, err error) {
	ctx, span := observability.StartSpan(ctx, "label.preview",
		attribute.String("label.template_id", cmd.TemplateID),
		attribute.String("label.product_id", cmd.ProductID))
	defer func() { observability.EndSpan(span, err) }()

	source, tpl, mode, err := s.source(ctx, cmd)
	if err != nil {
		return RenderResult{}, err
	}

	var product *domain.Product
	if id := strings.TrimSpace(cmd.ProductID); id != "" {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return RenderResult{}, translateRepoError(err, withMessage(ErrProductNotFound, msgProductNotFound), nil)
		}
		product = &p
	}
	catalog, err := s.attributes.List(ctx)
	if err != nil {
		return RenderResult{}, translateRepoError(err, nil, nil)
	}

	started := time.Now()
	html := s.engine.Render(source, product, catalog)
	unresolved := []string{}
	if product != nil {
		if left := render.Placeholders(html); left != nil {
			unresolved = left
		}
	}
	s.metrics.ObserveRender(mode, time.Since(started), len(unresolved))
	if len(unresolved) > 0 {
		s.logger(ctx, "label.unresolved", map[string]any{"placeholders": unresolved, "productId": cmd.ProductID})
	}
	return RenderResult{HTML: html, Unresolved: unresolved, Template: tpl, Product: product}, nil
}

// GeneratePDF renders like Preview, wraps the result in an A4 document and prints it.
func (s *labelService) GeneratePDF(ctx context.Context, cmd PDFCommand) (result PDFResult, err error) {
	if strings.TrimSpace(cmd.HTML) == "" && strings.TrimSpace(cmd.TemplateID) == "" {
		return PDFResult{}, withMessage(ErrLabelInvalidInput, msgLabelHTMLRequired)
	}
	if s.renderer == nil {
		return PDFResult{}, withMessage(ErrLabelPDFUnavailable, msgLabelPDFUnavailable)
	}
	rendered, err := s.Preview(ctx, cmd.RenderCommand)
	if err != nil {
		return PDFResult{}, err
	}

	ctx, span := observability.StartSpan(ctx, "label.pdf", attribute.String("label.template_id", cmd.TemplateID))
	defer func() { observability.EndSpan(span, err) }()

	title := "Label"
	if rendered.Template != nil {
		title = rendered.Template.Name
	}
	doc := pdf.Document(rendered.HTML, pdf.WithTitle(title), pdf.WithScripts(pdf.TailwindCDN))

	started := time.Now()
	data, err := s.renderer.Render(ctx, doc)
	s.metrics.ObservePDF(err, time.Since(started), len(data))
	if err != nil {
		s.logger(ctx, "label.pdf_failed", map[string]any{"error": err.Error(), "templateId": cmd.TemplateID})
		return PDFResult{}, fmt.Errorf("%w: %v", withMessage(ErrLabelPDFFailed, msgLabelPDFFailed), err)
	}

	result = PDFResult{Data: data, Filename: pdfFilename(cmd.Filename, rendered.Template, rendered.Product)}
	result.Export = s.archive(ctx, result, rendered)

	event := domain.LabelEvent{
		Type:       domain.EventLabelGenerated,
		ID:         s.newID(),
		OccurredAt: s.now(),
		Attributes: map[string]string{"filename": result.Filename},
	}
	if rendered.Template != nil {
		event.TemplateID = rendered.Template.ID
	}
	if rendered.Product != nil {
		event.ProductID = rendered.Product.ID
	}
	if result.Export != nil {
		event.ExportURI = result.Export.URI()
	}
	s.publish(ctx, event)
	s.logger(ctx, "label.generated", map[string]any{"filename": result.Filename, "bytes": len(data)})
	return result, nil
}

func (s *labelService) source(ctx context.Context, cmd RenderCommand) (string, *domain.LabelTemplate, string, error) {
	if strings.TrimSpace(cmd.HTML) != "" {
		return cmd.HTML, nil, renderModeHTML, nil
	}
	id := strings.TrimSpace(cmd.TemplateID)
	if id == "" {
		return "", nil, renderModeHTML, withMessage(ErrLabelInvalidInput, msgLabelHTMLRequired)
	}
	tpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return "", nil, "", translateRepoError(err, withMessage(ErrTemplateNotFound, msgTemplateNotFound), nil)
	}
	return tpl.HTML, &tpl, renderModeTemplate, nil
}

func (s *labelService) archive(ctx context.Context, result PDFResult, rendered RenderResult) *domain.LabelExport {
	if s.exports == nil {
		return nil
	}
	export := domain.LabelExport{
		ID:        s.newID(),
		Filename:  result.Filename,
		CreatedAt: s.now(),
	}
	if rendered.Template != nil {
		export.TemplateID = rendered.Template.ID
	}
	if rendered.Product != nil {
		export.ProductID = rendered.Product.ID
	}
	obj, err := s.exports.Put(ctx, storage.Upload{
		Purpose:     storage.PurposeLabelPDF,
		Params:      storage.PathParams{TemplateID: export.TemplateID, ExportID: export.ID, FileName: export.Filename},
		ContentType: "application/pdf",
		Data:        result.Data,
		Metadata:    map[string]string{"templateId": export.TemplateID, "productId": export.ProductID},
	})
	s.metrics.ObserveExport(err)
	if err != nil {
		s.logger(ctx, "label.archive_failed", map[string]any{"error": err.Error(), "filename": export.Filename})
		return nil
	}
	export.Bucket = obj.Bucket
	export.Object = obj.Name
	export.SizeBytes = obj.Size
	return &export
}

func (s *labelService) publish(ctx context.Context, event domain.LabelEvent) {
	if s.events == nil {
		return
	}
	_, err := s.events.Publish(ctx, event)
	s.metrics.ObserveEvent(event.Type, err)
	if err != nil {
		s.logger(ctx, "event.publish_failed", map[string]any{"type": event.Type, "error": err.Error()})
	}
}

// pdfFilename picks the download name. An explicit name wins; otherwise the template and product
// names are slugged into "<template>_<product>.pdf".
func pdfFilename(requested string, tpl *domain.LabelTemplate, product *domain.Product) string {
	if name := path.Base(strings.TrimSpace(requested)); name != "" && name != "." && name != "/" {
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			name += ".pdf"
		}
		return name
	}
	if product == nil {
		return defaultPDFFilename
	}
	prefix := "label"
	if tpl != nil {
		if slug := slugify(tpl.Name); slug != "" {
			prefix = slug
		}
	}
	slug := slugify(product.Name)
	if slug == "" {
		return prefix + ".pdf"
	}
	return prefix + "_" + slug + ".pdf"
}

func slugify(value string) string {
	return strings.Trim(filenameUnsafe.ReplaceAllString(strings.ToLower(value), "_"), "_")
}
