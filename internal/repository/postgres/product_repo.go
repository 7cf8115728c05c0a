package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
)

// ProductRepo implements repository.ProductRepository.
type ProductRepo struct{ db *DB }

// NewProductRepo constructs a product repository.
func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

const selectProduct = `
SELECT p.id, p.title, p.price, p.description, p.images, c.id, c.name, c.image
FROM products p
JOIN categories c ON c.id = p.category_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where renders the filter as a WHERE clause with positional args.
func where(f model.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Title != "" {
		add(`p.title ILIKE $%d ESCAPE '\'`, "%"+likeEscaper.Replace(f.Title)+"%")
	}
	if f.CategoryID != model.DefaultCategoryID {
		add("p.category_id = $%d", f.CategoryID)
	}
	if f.Price != nil {
		add("p.price = $%d", *f.Price)
	}
	if f.PriceMin != nil {
		add("p.price >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("p.price <= $%d", *f.PriceMax)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetProducts returns the page selected by f and the count of all matches.
func (r *ProductRepo) GetProducts(ctx context.Context, f model.Filter) (model.ProductPage, error) {
	if err := f.Validate(); err != nil {
		return model.ProductPage{}, err
	}
	cond, args := where(f)

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM products p`+cond, args...).Scan(&total); err != nil {
		return model.ProductPage{}, err
	}

	n := len(args)
	q := selectProduct + cond + fmt.Sprintf(" ORDER BY p.id LIMIT $%d OFFSET $%d", n+1, n+2)
	rows, err := r.db.Pool.Query(ctx, q, append(args, f.ItemsPerPage, f.Offset())...)
	if err != nil {
		return model.ProductPage{}, err
	}
	defer rows.Close()

	out := make([]model.Product, 0, f.ItemsPerPage)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return model.ProductPage{}, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return model.ProductPage{}, err
	}
	return model.ProductPage{Products: out, Total: total}, nil
}

// GetProduct returns a product by id.
func (r *ProductRepo) GetProduct(ctx context.Context, id int) (model.Product, error) {
	p, err := scanProduct(r.db.Pool.QueryRow(ctx, selectProduct+` WHERE p.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, errs.ErrNotFound
	}
	return p, err
}

// RegisterProduct inserts draft and returns the stored product.
func (r *ProductRepo) RegisterProduct(ctx context.Context, d model.ProductDraft) (model.Product, error) {
	const q = `
INSERT INTO products (title, price, description, category_id, images)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	images := d.Images
	if images == nil {
		images = []string{}
	}
	var id int
	if err := r.db.Pool.QueryRow(ctx, q, d.Title, d.Price, d.Description, d.CategoryID, images).Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return model.Product{}, fmt.Errorf("%w: unknown category %d", errs.ErrValidation, d.CategoryID)
		}
		return model.Product{}, err
	}
	return r.GetProduct(ctx, id)
}

// UpdateProduct applies the non-nil fields of patch to product id.
func (r *ProductRepo) UpdateProduct(ctx context.Context, patch model.ProductPatch, id int) (model.Product, error) {
	const q = `
UPDATE products SET
  title       = COALESCE($2, title),
  price       = COALESCE($3, price),
  description = COALESCE($4, description),
  category_id = COALESCE($5, category_id),
  images      = COALESCE($6, images)
WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, patch.Title, patch.Price, patch.Description, patch.CategoryID, patch.Images)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Product{}, fmt.Errorf("%w: unknown category", errs.ErrValidation)
		}
		return model.Product{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Product{}, errs.ErrNotFound
	}
	return r.GetProduct(ctx, id)
}

// DeleteProduct removes p by id.
func (r *ProductRepo) DeleteProduct(ctx context.Context, p model.Product) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GetCategories lists all categories ordered by id.
func (r *ProductRepo) GetCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, image FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.Images,
		&p.Category.ID, &p.Category.Name, &p.Category.Image)
	return p, err
}
