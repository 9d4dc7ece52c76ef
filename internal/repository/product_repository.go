package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fulfill/internal/domain"
)

const uniqueViolationCode = "23505"

const productColumns = "id, name, sku, description, active, created_at, updated_at"

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository wires a repository backed by pgxpool.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO products (name, sku, description, active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+productColumns,
		product.Name,
		product.SKU,
		product.Description,
		product.Active,
	)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrSKUConflict
		}
		return domain.Product{}, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, limit int, offset int) ([]domain.Product, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if filter.SKU != "" {
		clauses = append(clauses, fmt.Sprintf("sku ILIKE $%d", argn))
		args = append(args, "%"+filter.SKU+"%")
		argn++
	}
	if filter.Name != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", argn))
		args = append(args, "%"+filter.Name+"%")
		argn++
	}
	if filter.Description != "" {
		clauses = append(clauses, fmt.Sprintf("description ILIKE $%d", argn))
		args = append(args, "%"+filter.Description+"%")
		argn++
	}
	if filter.Active != nil {
		clauses = append(clauses, fmt.Sprintf("active = $%d", argn))
		args = append(args, *filter.Active)
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		"SELECT %s FROM products %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		productColumns, where, argn, argn+1,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE products
		 SET name = $2, sku = $3, description = $4, active = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		product.ID,
		product.Name,
		product.SKU,
		product.Description,
		product.Active,
	)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrSKUConflict
		}
		return domain.Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *productRepository) FindExistingSKUs(ctx context.Context, canonicalSKUs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(canonicalSKUs))
	if len(canonicalSKUs) == 0 {
		return existing, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT lower(sku) FROM products WHERE lower(sku) = ANY($1)`,
		canonicalSKUs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing SKUs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("failed to scan existing SKU: %w", err)
		}
		existing[sku] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate existing SKUs: %w", err)
	}

	return existing, nil
}

func (r *productRepository) BulkCreate(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	if len(products) == 0 {
		return nil, nil
	}

	names := make([]string, len(products))
	skus := make([]string, len(products))
	descriptions := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
		skus[i] = p.SKU
		descriptions[i] = p.Description
	}

	// ON CONFLICT covers the race where an interactive writer claimed a SKU
	// after the membership lookup; overwrite semantics apply either way.
	rows, err := r.pool.Query(
		ctx,
		`INSERT INTO products (name, sku, description, active)
		 SELECT u.name, u.sku, u.description, TRUE
		 FROM unnest($1::text[], $2::text[], $3::text[]) AS u(name, sku, description)
		 ON CONFLICT ((lower(sku))) DO UPDATE
		 SET name = EXCLUDED.name,
		     sku = EXCLUDED.sku,
		     description = EXCLUDED.description,
		     updated_at = now()
		 RETURNING `+productColumns,
		names, skus, descriptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk create products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepository) BulkUpdate(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	if len(products) == 0 {
		return nil, nil
	}

	names := make([]string, len(products))
	skus := make([]string, len(products))
	descriptions := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
		skus[i] = p.SKU
		descriptions[i] = p.Description
	}

	rows, err := r.pool.Query(
		ctx,
		`UPDATE products p
		 SET name = u.name, sku = u.sku, description = u.description, updated_at = now()
		 FROM unnest($1::text[], $2::text[], $3::text[]) AS u(name, sku, description)
		 WHERE lower(p.sku) = lower(u.sku)
		 RETURNING p.id, p.name, p.sku, p.description, p.active, p.created_at, p.updated_at`,
		names, skus, descriptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk update products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
