package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lapstore/storefront-api/internal/apperr"
	domain "github.com/lapstore/storefront-api/internal/entity"
)

// MySQLCatalogRepo serves product and brand admin CRUD plus storefront reads.
type MySQLCatalogRepo struct{ db *sql.DB }

func NewMySQLCatalogRepo(db *sql.DB) *MySQLCatalogRepo { return &MySQLCatalogRepo{db: db} }

const productCols = `id, name, slug, brand, description, purchase_price, sale_price,
quantity, images_json, specs_json, rating_avg, rating_count, created_at, updated_at`

func (r *MySQLCatalogRepo) CreateProduct(ctx context.Context, p *domain.Product) error {
	images, err := marshalJSON(p.Images)
	if err != nil {
		return err
	}
	specs, err := marshalJSON(p.Specs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO products
  (id, name, slug, brand, description, purchase_price, sale_price, quantity,
   images_json, specs_json, rating_avg, rating_count, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,0,0,NOW(),NOW())`,
		p.ID, p.Name, p.Slug, p.Brand, p.Description, p.PurchasePrice,
		p.SalePrice, p.Quantity, images, specs,
	)
	if isDuplicate(err) {
		return apperr.New(apperr.Conflict, "product slug already exists").With("slug", p.Slug)
	}
	return err
}

func (r *MySQLCatalogRepo) UpdateProduct(ctx context.Context, p *domain.Product) error {
	images, err := marshalJSON(p.Images)
	if err != nil {
		return err
	}
	specs, err := marshalJSON(p.Specs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET name = ?, slug = ?, brand = ?, description = ?, purchase_price = ?,
    sale_price = ?, quantity = ?, images_json = ?, specs_json = ?, updated_at = NOW()
WHERE id = ?`,
		p.Name, p.Slug, p.Brand, p.Description, p.PurchasePrice,
		p.SalePrice, p.Quantity, images, specs, p.ID,
	)
	if isDuplicate(err) {
		return apperr.New(apperr.Conflict, "product slug already exists").With("slug", p.Slug)
	}
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "product not found").With("id", p.ID)
	}
	return nil
}

func (r *MySQLCatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "product not found").With("id", id)
	}
	return nil
}

func (r *MySQLCatalogRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (r *MySQLCatalogRepo) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE slug = ?`, slug)
	return scanProduct(row)
}

func (r *MySQLCatalogRepo) ListProducts(ctx context.Context, brand string, limit, offset int) ([]domain.Product, error) {
	q := `SELECT ` + productCols + ` FROM products`
	args := []any{}
	if brand != "" {
		q += ` WHERE brand = ?`
		args = append(args, brand)
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MySQLCatalogRepo) CreateBrand(ctx context.Context, b *domain.Brand) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO brands (id, name, slug, created_at, updated_at)
VALUES (?,?,?,NOW(),NOW())`,
		b.ID, b.Name, b.Slug,
	)
	if isDuplicate(err) {
		return apperr.New(apperr.Conflict, "brand already exists").With("name", b.Name)
	}
	return err
}

func (r *MySQLCatalogRepo) DeleteBrand(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM brands WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "brand not found").With("id", id)
	}
	return nil
}

func (r *MySQLCatalogRepo) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM brands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p      domain.Product
		images []byte
		specs  []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Brand, &p.Description, &p.PurchasePrice,
		&p.SalePrice, &p.Quantity, &images, &specs, &p.RatingAvg, &p.RatingCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if len(images) > 0 {
		if err := unmarshalJSON(images, &p.Images); err != nil {
			return nil, err
		}
	}
	if len(specs) > 0 {
		if err := unmarshalJSON(specs, &p.Specs); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
