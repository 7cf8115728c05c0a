package repository

import (
	"context"

	"github.com/and161185/storefront/internal/model"
)

// AuthRepository registers users, issues tokens and resolves sessions.
type AuthRepository interface {
	// RegisterUser creates an account. It does not start a session.
	RegisterUser(ctx context.Context, info model.RegisterUserInfo) (model.User, error)
	// LoginUser exchanges credentials for a token pair.
	LoginUser(ctx context.Context, creds model.Credentials) (model.UserToken, error)
	// GetUserWithSession resolves the profile owning tokens.
	GetUserWithSession(ctx context.Context, tokens model.UserToken) (model.User, error)
}

// TokenStore keeps the session token pair across process restarts.
type TokenStore interface {
	// Set replaces the stored pair.
	Set(tokens model.UserToken) error
	// Get returns the stored pair or nil when none is stored.
	Get() (*model.UserToken, error)
	// Clear removes the stored pair; clearing an empty store is not an error.
	Clear() error
}
