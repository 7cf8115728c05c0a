package repository

import (
	"context"

	"github.com/and161185/storefront/internal/model"
)

// ProductRepository provides access to the product catalog.
// Every method may fail with an error carrying a human-readable message.
type ProductRepository interface {
	// GetProducts returns one page of products matching filter and the total count.
	GetProducts(ctx context.Context, filter model.Filter) (model.ProductPage, error)

	// GetProduct returns a single product by ID.
	GetProduct(ctx context.Context, id int) (model.Product, error)

	// RegisterProduct creates a product and returns it as stored.
	RegisterProduct(ctx context.Context, draft model.ProductDraft) (model.Product, error)

	// UpdateProduct applies patch to the product with id and returns the result.
	UpdateProduct(ctx context.Context, patch model.ProductPatch, id int) (model.Product, error)

	// DeleteProduct removes the product.
	DeleteProduct(ctx context.Context, product model.Product) error

	// GetCategories lists all categories.
	GetCategories(ctx context.Context) ([]model.Category, error)
}
