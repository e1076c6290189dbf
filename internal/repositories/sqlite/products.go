package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/repositories"
)

const productColumns = `id, name, attributes, created_at, updated_at`

type productRepository struct {
	db *sql.DB
}

var _ repositories.ProductRepository = (*productRepository)(nil)

// List loads every product and filters in process: the query matches attribute values, which are
// stored as a JSON object alongside their keys.
func (r *productRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrapError("products.list", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, wrapError("products.scan", err)
		}
		if repositories.MatchProduct(product, filter.Query) {
			out = append(out, product)
		}
	}
	return out, wrapError("products.list", rows.Err())
}

func (r *productRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	product, err := scanProduct(row)
	return product, wrapError("products.get", err)
}

func (r *productRepository) InsertMany(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("products.begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return wrapError("products.prepare", err)
	}
	defer stmt.Close()

	for _, product := range products {
		attrs, err := encodeAttributes(product.Attributes)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, product.ID, product.Name, attrs, formatTime(product.CreatedAt), formatTime(product.UpdatedAt)); err != nil {
			return wrapError("products.insert", err)
		}
	}
	return wrapError("products.commit", tx.Commit())
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return wrapError("products.delete", err)
	}
	return requireAffected(res, "products.delete")
}

func (r *productRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, wrapError("products.delete_all", err)
	}
	n, err := res.RowsAffected()
	return int(n), wrapError("products.delete_all", err)
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product          domain.Product
		attrs            string
		created, updated string
	)
	if err := row.Scan(&product.ID, &product.Name, &attrs, &created, &updated); err != nil {
		return domain.Product{}, err
	}
	product.Attributes = map[string]string{}
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &product.Attributes); err != nil {
			return domain.Product{}, err
		}
	}
	product.CreatedAt = parseTime(created)
	product.UpdatedAt = parseTime(updated)
	return product, nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", wrapError("products.encode", err)
	}
	return string(data), nil
}
