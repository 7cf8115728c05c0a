package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

// ProductServiceImpl validates catalog writes before they reach storage.
type ProductServiceImpl struct {
	repo repository.ProductRepository
}

var _ repository.ProductRepository = (*ProductServiceImpl)(nil)

// NewProductService wraps repo.
func NewProductService(repo repository.ProductRepository) *ProductServiceImpl {
	return &ProductServiceImpl{repo: repo}
}

func (s *ProductServiceImpl) GetProducts(ctx context.Context, f model.Filter) (model.ProductPage, error) {
	if err := f.Validate(); err != nil {
		return model.ProductPage{}, err
	}
	return s.repo.GetProducts(ctx, f)
}

func (s *ProductServiceImpl) GetProduct(ctx context.Context, id int) (model.Product, error) {
	if id <= 0 {
		return model.Product{}, errs.ErrNotFound
	}
	return s.repo.GetProduct(ctx, id)
}

// RegisterProduct validates d and stores it.
// Rules: title is non-blank, price >= 0, category is set, images are non-blank.
func (s *ProductServiceImpl) RegisterProduct(ctx context.Context, d model.ProductDraft) (model.Product, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return model.Product{}, fmt.Errorf("%w: title should not be empty", errs.ErrValidation)
	}
	if d.Price < 0 {
		return model.Product{}, fmt.Errorf("%w: price must be a positive number", errs.ErrValidation)
	}
	if d.CategoryID <= 0 {
		return model.Product{}, fmt.Errorf("%w: categoryId must be set", errs.ErrValidation)
	}
	if err := validImages(d.Images); err != nil {
		return model.Product{}, err
	}
	return s.repo.RegisterProduct(ctx, d)
}

// UpdateProduct validates the fields patch sets and applies it.
func (s *ProductServiceImpl) UpdateProduct(ctx context.Context, patch model.ProductPatch, id int) (model.Product, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Product{}, fmt.Errorf("%w: title should not be empty", errs.ErrValidation)
	}
	if patch.Price != nil && *patch.Price < 0 {
		return model.Product{}, fmt.Errorf("%w: price must be a positive number", errs.ErrValidation)
	}
	if patch.CategoryID != nil && *patch.CategoryID <= 0 {
		return model.Product{}, fmt.Errorf("%w: categoryId must be set", errs.ErrValidation)
	}
	if patch.Images != nil {
		if err := validImages(patch.Images); err != nil {
			return model.Product{}, err
		}
	}
	return s.repo.UpdateProduct(ctx, patch, id)
}

func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, p model.Product) error {
	return s.repo.DeleteProduct(ctx, p)
}

func (s *ProductServiceImpl) GetCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.GetCategories(ctx)
}

func validImages(images []string) error {
	for i, img := range images {
		if strings.TrimSpace(img) == "" {
			return fmt.Errorf("%w: images[%d] is empty", errs.ErrValidation, i)
		}
	}
	return nil
}
