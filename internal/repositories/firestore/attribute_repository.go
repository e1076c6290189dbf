package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hansupo/shad-label/internal/domain"
	pfirestore "github.com/hansupo/shad-label/internal/platform/firestore"
	"github.com/hansupo/shad-label/internal/repositories"
)

type attributeDocument struct {
	Name      string    `firestore:"name"`
	Label     string    `firestore:"label"`
	Type      string    `firestore:"type"`
	Required  bool      `firestore:"required"`
	Priority  int       `firestore:"priority"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

var attributeCodec = pfirestore.Codec[domain.Attribute]{
	Encode: func(a domain.Attribute) any {
		return attributeDocument{
			Name:      a.Name,
			Label:     a.Label,
			Type:      string(a.Type),
			Required:  a.Required,
			Priority:  a.Priority,
			CreatedAt: a.CreatedAt.UTC(),
			UpdatedAt: a.UpdatedAt.UTC(),
		}
	},
	Decode: func(id string, snap *firestore.DocumentSnapshot) (domain.Attribute, error) {
		var doc attributeDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Attribute{}, err
		}
		return domain.Attribute{
			ID:        id,
			Name:      doc.Name,
			Label:     doc.Label,
			Type:      domain.AttributeType(doc.Type),
			Required:  doc.Required,
			Priority:  doc.Priority,
			CreatedAt: doc.CreatedAt.UTC(),
			UpdatedAt: doc.UpdatedAt.UTC(),
		}, nil
	},
}

// AttributeRepository keeps names unique by checking them inside the write transaction.
type AttributeRepository struct {
	provider *pfirestore.Provider
	col      *pfirestore.Collection[domain.Attribute]
}

var _ repositories.AttributeRepository = (*AttributeRepository)(nil)

func NewAttributeRepository(provider *pfirestore.Provider) *AttributeRepository {
	return &AttributeRepository{
		provider: provider,
		col:      pfirestore.NewCollection(provider, attributeCollection, attributeCodec),
	}
}

func (r *AttributeRepository) List(ctx context.Context) ([]domain.Attribute, error) {
	attrs, err := r.col.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	repositories.SortAttributes(attrs)
	return attrs, nil
}

func (r *AttributeRepository) FindByID(ctx context.Context, id string) (domain.Attribute, error) {
	return r.col.Get(ctx, id)
}

func (r *AttributeRepository) FindByName(ctx context.Context, name string) (domain.Attribute, error) {
	attrs, err := r.col.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("name", "==", name).Limit(1)
	})
	if err != nil {
		return domain.Attribute{}, err
	}
	if len(attrs) == 0 {
		return domain.Attribute{}, pfirestore.NotFoundError("attributes.get_by_name", errors.New("attribute not found"))
	}
	return attrs[0], nil
}

func (r *AttributeRepository) Insert(ctx context.Context, attr domain.Attribute) error {
	return r.write(ctx, attr, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		return tx.Create(ref, attributeCodec.Encode(attr))
	})
}

func (r *AttributeRepository) Update(ctx context.Context, attr domain.Attribute) error {
	return r.write(ctx, attr, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		if _, err := tx.Get(ref); err != nil {
			return pfirestore.WrapError("attributes.update", err)
		}
		doc := attributeCodec.Encode(attr).(attributeDocument)
		return tx.Update(ref, []firestore.Update{
			{Path: "name", Value: doc.Name},
			{Path: "label", Value: doc.Label},
			{Path: "type", Value: doc.Type},
			{Path: "required", Value: doc.Required},
			{Path: "priority", Value: doc.Priority},
			{Path: "updated_at", Value: doc.UpdatedAt},
		})
	})
}

// write runs apply after verifying no other document holds attr.Name.
func (r *AttributeRepository) write(ctx context.Context, attr domain.Attribute, apply func(*firestore.Transaction, *firestore.DocumentRef) error) error {
	col, err := r.col.Ref(ctx)
	if err != nil {
		return err
	}
	ref := col.Doc(attr.ID)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(col.Where("name", "==", attr.Name).Limit(2)).GetAll()
		if err != nil {
			return pfirestore.WrapError("attributes.unique_name", err)
		}
		for _, doc := range docs {
			if doc.Ref.ID != attr.ID {
				return pfirestore.ConflictError("attributes.unique_name", errors.New("attribute name already exists"))
			}
		}
		return apply(tx, ref)
	})
}

func (r *AttributeRepository) Delete(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}

func (r *AttributeRepository) DeleteAll(ctx context.Context) (int, error) {
	return r.col.DeleteAll(ctx)
}
