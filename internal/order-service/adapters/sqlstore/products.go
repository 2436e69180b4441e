package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

const productColumns = `id, name, sku, category, description, price, stock, created_at`

type productRepo struct {
	base
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		desc      sql.NullString
		price     decimal.Decimal
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &desc, &price, &p.Stock, &createdAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	p.Price = price
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = t
	return &p, nil
}

func (r *productRepo) getOne(ctx context.Context, op, q string, arg any) (*domain.Product, error) {
	p, err := scanProduct(r.queryRow(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	return p, nil
}

func (r *productRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getOne(ctx, "get product", `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r *productRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getOne(ctx, "lock product", `SELECT `+productColumns+` FROM products WHERE id = ?`+r.d.lockSuffix, id)
}

func (r *productRepo) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	return r.getOne(ctx, "get product by name", `SELECT `+productColumns+` FROM products WHERE name = ?`, name)
}

func (r *productRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return r.getOne(ctx, "get product by sku", `SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
}

func (r *productRepo) List(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	rows, err := r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list products: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: list products: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *productRepo) Insert(ctx context.Context, in domain.NewProduct) (*domain.Product, error) {
	const q = `
		INSERT INTO products (name, sku, category, description, price, stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + productColumns

	p, err := scanProduct(r.queryRow(ctx, q,
		in.Name,
		in.SKU,
		in.Category,
		nullableString(in.Description),
		in.Price.StringFixed(2),
		in.Stock,
		formatTime(r.now()),
	))
	if err != nil {
		if field, ok := r.d.unique(err); ok {
			return nil, &domain.ConflictError{Field: field}
		}
		return nil, fmt.Errorf("sqlstore: insert product %q: %w", in.SKU, err)
	}
	return p, nil
}

func (r *productRepo) ApplyStockDelta(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	const q = `
		UPDATE products
		SET    stock = CASE WHEN stock + ? < 0 THEN 0 ELSE stock + ? END
		WHERE  id = ?
		RETURNING ` + productColumns

	p, err := scanProduct(r.queryRow(ctx, q, delta, delta, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: apply stock delta to %d: %w", id, err)
	}
	return p, nil
}
