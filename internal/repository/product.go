package repository

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"infinixai/internal/entities"
)

const productColumns = "id, tenant_id, name, category, price, description, image_url, is_active, created_at"

// ProductRepository is the tenant catalog.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListByTenant returns the catalog in insertion order.
func (r *ProductRepository) ListByTenant(ctx context.Context, tenantID string) ([]entities.ProductEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE tenant_id = $1 ORDER BY created_at, id", tenantID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []entities.ProductEntry{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Get(ctx context.Context, tenantID, id string) (*entities.ProductEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE tenant_id = $1 AND id = $2", tenantID, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p, assigning an id when it has none.
func (r *ProductRepository) Create(ctx context.Context, p *entities.ProductEntry) error {
	return insertProduct(ctx, r.db, p)
}

func (r *ProductRepository) Update(ctx context.Context, p *entities.ProductEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $3, category = $4, price = $5, description = $6, image_url = $7, is_active = $8
		WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.Name, p.Category, nullPrice(p.Price), p.Description, p.ImageURL, p.Active.Ptr())
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return checkAffected(res)
}

func (r *ProductRepository) SetActive(ctx context.Context, tenantID, id string, state entities.ActiveState) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET is_active = $3 WHERE tenant_id = $1 AND id = $2",
		tenantID, id, state.Ptr())
	if err != nil {
		return fmt.Errorf("set product state: %w", err)
	}
	return checkAffected(res)
}

func (r *ProductRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return checkAffected(res)
}

// ImportCSV appends the rows of a CSV file to the catalog in one
// transaction. The header row names the columns (name, category, price,
// description, image_url, is_active); unknown columns are ignored and rows
// without a name are skipped. It returns the number of imported products.
func (r *ProductRepository) ImportCSV(ctx context.Context, tenantID string, data io.Reader) (int, error) {
	reader := csv.NewReader(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(rows) < 1 {
		return 0, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
	}

	headers := make([]string, len(rows[0]))
	hasName := false
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		hasName = hasName || headers[i] == "name"
	}
	if !hasName {
		return 0, fmt.Errorf("%w: no name column", ErrInvalidCSV)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	imported := 0
	for n, row := range rows[1:] {
		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		p := entities.ProductFromRecord(rec)
		if p.Name == "" {
			continue
		}
		if flag, ok := rec["is_active"].(string); ok {
			p.Active = entities.ParseActiveFlag(flag)
		}
		if !entities.ValidPrice(p.Price) {
			return 0, fmt.Errorf("%w: line %d: price out of range", ErrInvalidCSV, n+2)
		}
		p.ID = ""
		p.TenantID = tenantID
		if err := insertProduct(ctx, tx, &p); err != nil {
			return 0, fmt.Errorf("csv line %d: %w", n+2, err)
		}
		imported++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return imported, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertProduct(ctx context.Context, db rowQueryer, p *entities.ProductEntry) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := db.QueryRowContext(ctx, `
		INSERT INTO products (id, tenant_id, name, category, price, description, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		p.ID, p.TenantID, p.Name, p.Category, nullPrice(p.Price), p.Description, p.ImageURL, p.Active.Ptr(),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (entities.ProductEntry, error) {
	var (
		p         entities.ProductEntry
		price     sql.NullFloat64
		active    sql.NullBool
		createdAt time.Time
	)
	err := s.Scan(&p.ID, &p.TenantID, &p.Name, &p.Category, &price, &p.Description, &p.ImageURL, &active, &createdAt)
	if err != nil {
		return p, err
	}
	if price.Valid {
		v := price.Float64
		p.Price = &v
	}
	if active.Valid {
		p.Active = entities.ActiveStateOf(active.Bool)
	}
	p.CreatedAt = createdAt
	return p, nil
}

func nullPrice(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
