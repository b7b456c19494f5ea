// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inventory persists product records across pipeline stages.
// See docs/ARCHITECTURE § Inventory.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/eo-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "products.db"
)

// Store manages the product inventory SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the inventory database at
// dataDir/index/products.db, creating the schema if needed.
func NewStore(cfg types.InventoryConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		collection TEXT,
		datetime TEXT,
		cloud_cover REAL,
		source_uri TEXT,
		safe_path TEXT,
		zarr_path TEXT,
		conversion_status TEXT NOT NULL DEFAULT 'none',
		fetched_at TEXT NOT NULL
	)`)
	return err
}

// Upsert inserts or updates a product record. On update, empty incoming
// fields do not clobber existing values.
func (s *Store) Upsert(ctx context.Context, p types.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	status := p.ConversionStatus
	if status == "" {
		status = types.ConversionNone
	}

	var dt string
	if !p.Datetime.IsZero() {
		dt = p.Datetime.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, collection, datetime, cloud_cover, source_uri,
			safe_path, zarr_path, conversion_status, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection = CASE WHEN excluded.collection != '' THEN excluded.collection ELSE collection END,
			datetime = CASE WHEN excluded.datetime != '' THEN excluded.datetime ELSE datetime END,
			cloud_cover = CASE WHEN excluded.cloud_cover >= 0 THEN excluded.cloud_cover ELSE cloud_cover END,
			source_uri = CASE WHEN excluded.source_uri != '' THEN excluded.source_uri ELSE source_uri END,
			safe_path = CASE WHEN excluded.safe_path != '' THEN excluded.safe_path ELSE safe_path END,
			zarr_path = CASE WHEN excluded.zarr_path != '' THEN excluded.zarr_path ELSE zarr_path END,
			conversion_status = excluded.conversion_status,
			fetched_at = excluded.fetched_at`,
		p.ID, p.Collection, dt, p.CloudCover, p.SourceURI,
		p.SafePath, p.ZarrPath, string(status), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting product %s: %w", p.ID, err)
	}
	return nil
}

// SetConversion updates the conversion status (and Zarr path, when given)
// of an existing product.
func (s *Store) SetConversion(ctx context.Context, id string, status types.ConversionStatus, zarrPath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET conversion_status = ?,
			zarr_path = CASE WHEN ? != '' THEN ? ELSE zarr_path END
		WHERE id = ?`,
		string(status), zarrPath, zarrPath, id,
	)
	if err != nil {
		return fmt.Errorf("updating product %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no product %q in inventory", id)
	}
	return nil
}

// Get returns the product with the given ID.
func (s *Store) Get(ctx context.Context, id string) (types.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection, datetime, cloud_cover, source_uri,
			safe_path, zarr_path, conversion_status
		FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return types.Product{}, fmt.Errorf("no product %q in inventory", id)
	}
	if err != nil {
		return types.Product{}, fmt.Errorf("reading product %s: %w", id, err)
	}
	return p, nil
}

// List returns up to limit products, most recently fetched first. A limit
// of 0 uses the configured default.
func (s *Store) List(ctx context.Context, limit int) ([]types.Product, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, datetime, cloud_cover, source_uri,
			safe_path, zarr_path, conversion_status
		FROM products ORDER BY fetched_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("reading product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner) (types.Product, error) {
	var p types.Product
	var dt, status string
	if err := sc.Scan(&p.ID, &p.Collection, &dt, &p.CloudCover, &p.SourceURI,
		&p.SafePath, &p.ZarrPath, &status); err != nil {
		return types.Product{}, err
	}
	if dt != "" {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			p.Datetime = t
		}
	}
	p.ConversionStatus = types.ConversionStatus(status)
	return p, nil
}
