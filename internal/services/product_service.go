package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/metrics"
	"github.com/hansupo/shad-label/internal/platform/textutil"
	"github.com/hansupo/shad-label/internal/repositories"
)

const (
	msgProductsRequired    = "Products array is required"
	msgNoProducts          = "No products to import"
	msgProductNameInvalid  = "Each product must have a valid name"
	msgProductAttrsInvalid = "Each product must have valid attributes"
	msgProductNotFound     = "Product not found"
	defaultImportSource    = "json"
)

type ProductServiceDeps struct {
	Products    repositories.ProductRepository
	Events      EventPublisher
	Metrics     *metrics.Metrics
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type productService struct {
	repo    repositories.ProductRepository
	events  EventPublisher
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
	logger  Logger
}

var _ ProductService = (*productService)(nil)

func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Products == nil {
		return nil, errors.New("product service: repository is required")
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
	return &productService{
		repo:    deps.Products,
		events:  deps.Events,
		metrics: deps.Metrics,
		now:     func() time.Time { return clock().UTC() },
		newID:   idGen,
		logger:  logger,
	}, nil
}

func (s *productService) List(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.repo.List(ctx, repositories.ProductListFilter{Query: strings.TrimSpace(query)})
	if err != nil {
		return nil, translateRepoError(err, nil, nil)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, translateRepoError(err, withMessage(ErrProductNotFound, msgProductNotFound), nil)
	}
	return product, nil
}

// Import stores every product in one batch. Creation times are spaced by a nanosecond so the
// newest-first listing keeps the input order reversed deterministically.
func (s *productService) Import(ctx context.Context, cmd ImportProductsCommand) (ImportResult, error) {
	source := strings.TrimSpace(cmd.Source)
	if source == "" {
		source = defaultImportSource
	}
	if len(cmd.Products) == 0 {
		s.metrics.ObserveImport(source, 0, ErrProductInvalidInput)
		return ImportResult{}, withMessage(ErrProductInvalidInput, msgNoProducts)
	}

	now := s.now()
	products := make([]domain.Product, 0, len(cmd.Products))
	ids := make([]string, 0, len(cmd.Products))
	for i, in := range cmd.Products {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			s.metrics.ObserveImport(source, 0, ErrProductInvalidInput)
			return ImportResult{}, withMessage(ErrProductInvalidInput, msgProductNameInvalid)
		}
		attrs := textutil.NormalizeLabels(in.Attributes)
		created := now.Add(time.Duration(i))
		product := domain.Product{
			ID:         s.newID(),
			Name:       name,
			Attributes: attrs,
			CreatedAt:  created,
			UpdatedAt:  created,
		}
		products = append(products, product)
		ids = append(ids, product.ID)
	}

	if err := s.repo.InsertMany(ctx, products); err != nil {
		s.metrics.ObserveImport(source, 0, err)
		return ImportResult{}, translateRepoError(err, nil, nil)
	}
	s.metrics.ObserveImport(source, len(products), nil)
	s.logger(ctx, "products.imported", map[string]any{"count": len(products), "source": source})
	s.publish(ctx, domain.LabelEvent{
		Type:       domain.EventProductsImported,
		ID:         s.newID(),
		Count:      len(products),
		Attributes: map[string]string{"source": source},
		OccurredAt: now,
	})
	return ImportResult{Count: len(products), IDs: ids}, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, withMessage(ErrProductNotFound, msgProductNotFound), nil)
	}
	s.logger(ctx, "product.deleted", map[string]any{"productId": id})
	return nil
}

func (s *productService) Flush(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, translateRepoError(err, nil, nil)
	}
	s.logger(ctx, "products.flushed", map[string]any{"count": n})
	return n, nil
}

func (s *productService) publish(ctx context.Context, event domain.LabelEvent) {
	if s.events == nil {
		return
	}
	_, err := s.events.Publish(ctx, event)
	s.metrics.ObserveEvent(event.Type, err)
	if err != nil {
		s.logger(ctx, "event.publish_failed", map[string]any{"type": event.Type, "error": err.Error()})
	}
}

// DecodeProductImport validates a {"products": [...]} JSON body. Names must be non-empty strings
// and attributes must be objects; non-string attribute values are stored as their JSON text and
// nulls are dropped.
func DecodeProductImport(body []byte) ([]ProductInput, error) {
	var envelope struct {
		Products json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, withMessage(ErrProductInvalidInput, msgProductsRequired)
	}
	raw := bytes.TrimSpace(envelope.Products)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, withMessage(ErrProductInvalidInput, msgProductsRequired)
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, withMessage(ErrProductInvalidInput, msgProductsRequired)
	}
	if len(rawItems) == 0 {
		return nil, withMessage(ErrProductInvalidInput, msgNoProducts)
	}

	out := make([]ProductInput, 0, len(rawItems))
	for _, item := range rawItems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, withMessage(ErrProductInvalidInput, msgProductNameInvalid)
		}
		var name string
		if err := json.Unmarshal(fields["name"], &name); err != nil || strings.TrimSpace(name) == "" {
			return nil, withMessage(ErrProductInvalidInput, msgProductNameInvalid)
		}
		attrsRaw := bytes.TrimSpace(fields["attributes"])
		if len(attrsRaw) == 0 || attrsRaw[0] != '{' {
			return nil, withMessage(ErrProductInvalidInput, msgProductAttrsInvalid)
		}
		var attrs map[string]json.RawMessage
		if err := json.Unmarshal(attrsRaw, &attrs); err != nil {
			return nil, withMessage(ErrProductInvalidInput, msgProductAttrsInvalid)
		}
		values := make(map[string]string, len(attrs))
		for label, value := range attrs {
			text, ok := attributeText(value)
			if ok {
				values[label] = text
			}
		}
		out = append(out, ProductInput{Name: name, Attributes: values})
	}
	return out, nil
}

func attributeText(value json.RawMessage) (string, bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return "", false
	}
	if value[0] == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s, true
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return string(value), true
	}
	return compact.String(), true
}
