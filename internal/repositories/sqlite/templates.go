package sqlite

import (
	"context"
	"database/sql"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/repositories"
)

const templateColumns = `id, name, html, created_at, updated_at`

type templateRepository struct {
	db *sql.DB
}

var _ repositories.TemplateRepository = (*templateRepository)(nil)

func (r *templateRepository) List(ctx context.Context) ([]domain.LabelTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM label_templates ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrapError("templates.list", err)
	}
	defer rows.Close()

	var out []domain.LabelTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, wrapError("templates.scan", err)
		}
		out = append(out, tpl)
	}
	return out, wrapError("templates.list", rows.Err())
}

func (r *templateRepository) FindByID(ctx context.Context, id string) (domain.LabelTemplate, error) {
	tpl, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM label_templates WHERE id = ?`, id))
	return tpl, wrapError("templates.get", err)
}

func (r *templateRepository) Insert(ctx context.Context, tpl domain.LabelTemplate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO label_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?)`,
		tpl.ID, tpl.Name, tpl.HTML, formatTime(tpl.CreatedAt), formatTime(tpl.UpdatedAt),
	)
	return wrapError("templates.insert", err)
}

func (r *templateRepository) Update(ctx context.Context, tpl domain.LabelTemplate) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE label_templates SET name = ?, html = ?, updated_at = ? WHERE id = ?`,
		tpl.Name, tpl.HTML, formatTime(tpl.UpdatedAt), tpl.ID,
	)
	if err != nil {
		return wrapError("templates.update", err)
	}
	return requireAffected(res, "templates.update")
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM label_templates WHERE id = ?`, id)
	if err != nil {
		return wrapError("templates.delete", err)
	}
	return requireAffected(res, "templates.delete")
}

func scanTemplate(row rowScanner) (domain.LabelTemplate, error) {
	var (
		tpl              domain.LabelTemplate
		created, updated string
	)
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.HTML, &created, &updated); err != nil {
		return domain.LabelTemplate{}, err
	}
	tpl.CreatedAt = parseTime(created)
	tpl.UpdatedAt = parseTime(updated)
	return tpl, nil
}
