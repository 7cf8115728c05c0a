// Package repository defines the collaborator contracts consumed by the state
// slices and implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/storefront/internal/model"
)

// UserRepository provides storage for accounts behind the local auth backend.
type UserRepository interface {
	// Create inserts a new account and fills in its ID.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id int) (*model.Account, error)
	// GetByEmail loads an account by email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}
