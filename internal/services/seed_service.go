package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeedCatalog []byte

// SeedCatalog is the YAML document the seed service loads.
type SeedCatalog struct {
	Attributes []SeedAttribute `yaml:"attributes"`
	Templates  []SeedTemplate  `yaml:"templates"`
	Products   []SeedProduct   `yaml:"products"`
}

type SeedAttribute struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
	Priority int    `yaml:"priority"`
}

type SeedTemplate struct {
	Name string `yaml:"name"`
	HTML string `yaml:"html"`
}

type SeedProduct struct {
	Name       string            `yaml:"name"`
	Attributes map[string]string `yaml:"attributes"`
}

// ParseSeedCatalog decodes a seed document. An empty document yields the built-in sample catalog.
func ParseSeedCatalog(data []byte) (SeedCatalog, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		data = defaultSeedCatalog
	}
	var catalog SeedCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return SeedCatalog{}, fmt.Errorf("parse seed catalog: %w", err)
	}
	return catalog, nil
}

type SeedServiceDeps struct {
	Attributes AttributeService
	Templates  TemplateService
	Products   ProductService
	// Catalog overrides the built-in sample data.
	Catalog *SeedCatalog
	Logger  Logger
}

type seedService struct {
	attributes AttributeService
	templates  TemplateService
	products   ProductService
	catalog    SeedCatalog
	logger     Logger
}

var _ SeedService = (*seedService)(nil)

func NewSeedService(deps SeedServiceDeps) (SeedService, error) {
	if deps.Attributes == nil || deps.Templates == nil || deps.Products == nil {
		return nil, errors.New("seed service: attribute, template and product services are required")
	}
	var catalog SeedCatalog
	if deps.Catalog != nil {
		catalog = *deps.Catalog
	} else {
		parsed, err := ParseSeedCatalog(nil)
		if err != nil {
			return nil, err
		}
		catalog = parsed
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &seedService{
		attributes: deps.Attributes,
		templates:  deps.Templates,
		products:   deps.Products,
		catalog:    catalog,
		logger:     logger,
	}, nil
}

// Seed inserts the catalog. Attributes, templates and products whose name already exists are
// skipped, so running it twice changes nothing.
func (s *seedService) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	attrs, err := s.attributes.List(ctx)
	if err != nil {
		return result, err
	}
	attrNames := make(map[string]struct{}, len(attrs))
	for _, attr := range attrs {
		attrNames[attr.Name] = struct{}{}
	}
	for _, seed := range s.catalog.Attributes {
		if _, exists := attrNames[seed.Name]; exists {
			result.AttributesSkipped++
			continue
		}
		cmd := CreateAttributeCommand{Name: seed.Name, Type: seed.Type, Required: &seed.Required}
		if seed.Label != "" {
			cmd.Label = &seed.Label
		}
		if seed.Priority != 0 {
			cmd.Priority = &seed.Priority
		}
		if _, err := s.attributes.Create(ctx, cmd); err != nil {
			return result, fmt.Errorf("seed attribute %q: %w", seed.Name, err)
		}
		attrNames[seed.Name] = struct{}{}
		result.AttributesCreated++
	}

	templates, err := s.templates.List(ctx)
	if err != nil {
		return result, err
	}
	tplNames := make(map[string]struct{}, len(templates))
	for _, tpl := range templates {
		tplNames[tpl.Name] = struct{}{}
	}
	for _, seed := range s.catalog.Templates {
		if _, exists := tplNames[seed.Name]; exists {
			result.TemplatesSkipped++
			continue
		}
		if _, err := s.templates.Create(ctx, TemplateCommand{Name: seed.Name, HTML: seed.HTML}); err != nil {
			return result, fmt.Errorf("seed template %q: %w", seed.Name, err)
		}
		tplNames[seed.Name] = struct{}{}
		result.TemplatesCreated++
	}

	products, err := s.products.List(ctx, "")
	if err != nil {
		return result, err
	}
	productNames := make(map[string]struct{}, len(products))
	for _, p := range products {
		productNames[p.Name] = struct{}{}
	}
	var inputs []ProductInput
	for _, seed := range s.catalog.Products {
		if _, exists := productNames[seed.Name]; exists {
			result.ProductsSkipped++
			continue
		}
		productNames[seed.Name] = struct{}{}
		inputs = append(inputs, ProductInput{Name: seed.Name, Attributes: seed.Attributes})
	}
	if len(inputs) > 0 {
		imported, err := s.products.Import(ctx, ImportProductsCommand{Products: inputs, Source: "seed"})
		if err != nil {
			return result, fmt.Errorf("seed products: %w", err)
		}
		result.ProductsCreated = imported.Count
	}

	s.logger(ctx, "seed.completed", map[string]any{
		"attributesCreated": result.AttributesCreated,
		"templatesCreated":  result.TemplatesCreated,
		"productsCreated":   result.ProductsCreated,
	})
	return result, nil
}
