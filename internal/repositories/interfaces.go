package repositories

import (
	"context"

	"github.com/hansupo/shad-label/internal/domain"
)

// Registry exposes the repositories of one storage backend.
type Registry interface {
	Attributes() AttributeRepository
	Products() ProductRepository
	Templates() TemplateRepository
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// AttributeRepository persists attribute definitions. Names are unique.
type AttributeRepository interface {
	// List returns definitions ordered by priority descending, then name ascending.
	List(ctx context.Context) ([]domain.Attribute, error)
	FindByID(ctx context.Context, id string) (domain.Attribute, error)
	FindByName(ctx context.Context, name string) (domain.Attribute, error)
	// Insert fails with a conflict when the name is taken.
	Insert(ctx context.Context, attr domain.Attribute) error
	// Update fails with a conflict when the new name belongs to another definition.
	Update(ctx context.Context, attr domain.Attribute) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	// Query matches the product name or any attribute value, case-insensitively.
	Query string
}

// ProductRepository persists products keyed by attribute label.
type ProductRepository interface {
	// List returns products newest first.
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	// InsertMany stores products in one batch; either all are stored or none.
	InsertMany(ctx context.Context, products []domain.Product) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// TemplateRepository persists label templates.
type TemplateRepository interface {
	// List returns templates newest first.
	List(ctx context.Context) ([]domain.LabelTemplate, error)
	FindByID(ctx context.Context, id string) (domain.LabelTemplate, error)
	Insert(ctx context.Context, tpl domain.LabelTemplate) error
	Update(ctx context.Context, tpl domain.LabelTemplate) error
	Delete(ctx context.Context, id string) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
