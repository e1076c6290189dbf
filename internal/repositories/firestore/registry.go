// Package firestore stores attributes, products and templates in Cloud Firestore collections.
package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/hansupo/shad-label/internal/platform/firestore"
	"github.com/hansupo/shad-label/internal/repositories"
)

const (
	attributeCollection = "attributes"
	productCollection   = "products"
	templateCollection  = "label_templates"

	// maxTxWrites is the Firestore limit of writes per transaction.
	maxTxWrites = 500
)

type Registry struct {
	provider   *pfirestore.Provider
	attributes *AttributeRepository
	products   *ProductRepository
	templates  *TemplateRepository
}

var _ repositories.Registry = (*Registry)(nil)

func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires a provider")
	}
	return &Registry{
		provider:   provider,
		attributes: NewAttributeRepository(provider),
		products:   NewProductRepository(provider),
		templates:  NewTemplateRepository(provider),
	}, nil
}

func (r *Registry) Attributes() repositories.AttributeRepository { return r.attributes }
func (r *Registry) Products() repositories.ProductRepository     { return r.products }
func (r *Registry) Templates() repositories.TemplateRepository   { return r.templates }

func (r *Registry) Ping(ctx context.Context) error { return r.provider.Ping(ctx) }

func (r *Registry) Close() error { return r.provider.Close() }
