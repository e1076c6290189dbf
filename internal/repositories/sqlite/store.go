// Package sqlite stores attributes, products and templates in a single SQLite file through the pure
// Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hansupo/shad-label/internal/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS attributes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	label      TEXT NOT NULL,
	type       TEXT NOT NULL,
	required   INTEGER NOT NULL DEFAULT 0,
	priority   INTEGER NOT NULL DEFAULT 50,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attributes_label ON attributes(label);

CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	attributes TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_created ON products(created_at);

CREATE TABLE IF NOT EXISTS label_templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	html       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is the SQLite-backed repository registry.
type Store struct {
	db         *sql.DB
	attributes *attributeRepository
	products   *productRepository
	templates  *templateRepository
}

var _ repositories.Registry = (*Store)(nil)

// Open creates the database file and its directory when missing and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, wrapError("migrate", err)
	}

	return &Store{
		db:         db,
		attributes: &attributeRepository{db: db},
		products:   &productRepository{db: db},
		templates:  &templateRepository{db: db},
	}, nil
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) Attributes() repositories.AttributeRepository { return s.attributes }
func (s *Store) Products() repositories.ProductRepository     { return s.products }
func (s *Store) Templates() repositories.TemplateRepository   { return s.templates }

func (s *Store) Ping(ctx context.Context) error {
	return wrapError("ping", s.db.PingContext(ctx))
}

func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}
