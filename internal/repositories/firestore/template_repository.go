package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hansupo/shad-label/internal/domain"
	pfirestore "github.com/hansupo/shad-label/internal/platform/firestore"
	"github.com/hansupo/shad-label/internal/repositories"
)

type templateDocument struct {
	Name      string    `firestore:"name"`
	HTML      string    `firestore:"html"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

var templateCodec = pfirestore.Codec[domain.LabelTemplate]{
	Encode: func(t domain.LabelTemplate) any {
		return templateDocument{Name: t.Name, HTML: t.HTML, CreatedAt: t.CreatedAt.UTC(), UpdatedAt: t.UpdatedAt.UTC()}
	},
	Decode: func(id string, snap *firestore.DocumentSnapshot) (domain.LabelTemplate, error) {
		var doc templateDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.LabelTemplate{}, err
		}
		return domain.LabelTemplate{ID: id, Name: doc.Name, HTML: doc.HTML, CreatedAt: doc.CreatedAt.UTC(), UpdatedAt: doc.UpdatedAt.UTC()}, nil
	},
}

type TemplateRepository struct {
	col *pfirestore.Collection[domain.LabelTemplate]
}

var _ repositories.TemplateRepository = (*TemplateRepository)(nil)

func NewTemplateRepository(provider *pfirestore.Provider) *TemplateRepository {
	return &TemplateRepository{col: pfirestore.NewCollection(provider, templateCollection, templateCodec)}
}

func (r *TemplateRepository) List(ctx context.Context) ([]domain.LabelTemplate, error) {
	templates, err := r.col.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("created_at", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	repositories.SortTemplates(templates)
	return templates, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id string) (domain.LabelTemplate, error) {
	return r.col.Get(ctx, id)
}

func (r *TemplateRepository) Insert(ctx context.Context, tpl domain.LabelTemplate) error {
	return r.col.Create(ctx, tpl.ID, tpl)
}

// Update overwrites name, html and updated_at, failing when the template does not exist.
func (r *TemplateRepository) Update(ctx context.Context, tpl domain.LabelTemplate) error {
	col, err := r.col.Ref(ctx)
	if err != nil {
		return err
	}
	_, err = col.Doc(tpl.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: tpl.Name},
		{Path: "html", Value: tpl.HTML},
		{Path: "updated_at", Value: tpl.UpdatedAt.UTC()},
	})
	return pfirestore.WrapError("label_templates.update", err)
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}
