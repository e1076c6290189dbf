package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hansupo/shad-label/internal/domain"
	pfirestore "github.com/hansupo/shad-label/internal/platform/firestore"
	"github.com/hansupo/shad-label/internal/repositories"
)

type productDocument struct {
	Name       string            `firestore:"name"`
	Attributes map[string]string `firestore:"attributes"`
	CreatedAt  time.Time         `firestore:"created_at"`
	UpdatedAt  time.Time         `firestore:"updated_at"`
}

var productCodec = pfirestore.Codec[domain.Product]{
	Encode: func(p domain.Product) any {
		attrs := p.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		return productDocument{Name: p.Name, Attributes: attrs, CreatedAt: p.CreatedAt.UTC(), UpdatedAt: p.UpdatedAt.UTC()}
	},
	Decode: func(id string, snap *firestore.DocumentSnapshot) (domain.Product, error) {
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Product{}, err
		}
		if doc.Attributes == nil {
			doc.Attributes = map[string]string{}
		}
		return domain.Product{
			ID:         id,
			Name:       doc.Name,
			Attributes: doc.Attributes,
			CreatedAt:  doc.CreatedAt.UTC(),
			UpdatedAt:  doc.UpdatedAt.UTC(),
		}, nil
	},
}

type ProductRepository struct {
	provider *pfirestore.Provider
	col      *pfirestore.Collection[domain.Product]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(provider *pfirestore.Provider) *ProductRepository {
	return &ProductRepository{
		provider: provider,
		col:      pfirestore.NewCollection(provider, productCollection, productCodec),
	}
}

// List filters in process; Firestore has no substring match over map values.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	products, err := r.col.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("created_at", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	repositories.SortProducts(products)
	return repositories.FilterProducts(products, filter), nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	return r.col.Get(ctx, id)
}

// InsertMany creates products in transactions of up to 500 writes. Batches beyond the first are
// not rolled back if a later one fails.
func (r *ProductRepository) InsertMany(ctx context.Context, products []domain.Product) error {
	col, err := r.col.Ref(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(products); start += maxTxWrites {
		end := min(start+maxTxWrites, len(products))
		chunk := products[start:end]
		err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, product := range chunk {
				if err := tx.Create(col.Doc(product.ID), productCodec.Encode(product)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}

func (r *ProductRepository) DeleteAll(ctx context.Context) (int, error) {
	return r.col.DeleteAll(ctx)
}
