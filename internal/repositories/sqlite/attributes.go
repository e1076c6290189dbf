package sqlite

import (
	"context"
	"database/sql"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/repositories"
)

const attributeColumns = `id, name, label, type, required, priority, created_at, updated_at`

type attributeRepository struct {
	db *sql.DB
}

var _ repositories.AttributeRepository = (*attributeRepository)(nil)

func (r *attributeRepository) List(ctx context.Context) ([]domain.Attribute, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attributeColumns+` FROM attributes ORDER BY priority DESC, name ASC, id ASC`)
	if err != nil {
		return nil, wrapError("attributes.list", err)
	}
	defer rows.Close()

	var out []domain.Attribute
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, wrapError("attributes.scan", err)
		}
		out = append(out, attr)
	}
	return out, wrapError("attributes.list", rows.Err())
}

func (r *attributeRepository) FindByID(ctx context.Context, id string) (domain.Attribute, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attributeColumns+` FROM attributes WHERE id = ?`, id)
	attr, err := scanAttribute(row)
	return attr, wrapError("attributes.get", err)
}

func (r *attributeRepository) FindByName(ctx context.Context, name string) (domain.Attribute, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attributeColumns+` FROM attributes WHERE name = ?`, name)
	attr, err := scanAttribute(row)
	return attr, wrapError("attributes.get_by_name", err)
}

func (r *attributeRepository) Insert(ctx context.Context, attr domain.Attribute) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attributes (`+attributeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attr.ID, attr.Name, attr.Label, string(attr.Type), attr.Required, attr.Priority,
		formatTime(attr.CreatedAt), formatTime(attr.UpdatedAt),
	)
	return wrapError("attributes.insert", err)
}

func (r *attributeRepository) Update(ctx context.Context, attr domain.Attribute) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attributes SET name = ?, label = ?, type = ?, required = ?, priority = ?, updated_at = ? WHERE id = ?`,
		attr.Name, attr.Label, string(attr.Type), attr.Required, attr.Priority, formatTime(attr.UpdatedAt), attr.ID,
	)
	if err != nil {
		return wrapError("attributes.update", err)
	}
	return requireAffected(res, "attributes.update")
}

func (r *attributeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attributes WHERE id = ?`, id)
	if err != nil {
		return wrapError("attributes.delete", err)
	}
	return requireAffected(res, "attributes.delete")
}

func (r *attributeRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attributes`)
	if err != nil {
		return 0, wrapError("attributes.delete_all", err)
	}
	n, err := res.RowsAffected()
	return int(n), wrapError("attributes.delete_all", err)
}

func scanAttribute(row rowScanner) (domain.Attribute, error) {
	var (
		attr             domain.Attribute
		typ              string
		created, updated string
	)
	if err := row.Scan(&attr.ID, &attr.Name, &attr.Label, &typ, &attr.Required, &attr.Priority, &created, &updated); err != nil {
		return domain.Attribute{}, err
	}
	attr.Type = domain.AttributeType(typ)
	attr.CreatedAt = parseTime(created)
	attr.UpdatedAt = parseTime(updated)
	return attr, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(op, err)
	}
	if n == 0 {
		return notFound(op)
	}
	return nil
}
