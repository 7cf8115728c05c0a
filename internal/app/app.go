// Package app assembles the storefront state slices into one application state.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/cart"
	"github.com/and161185/storefront/internal/catalog"
	"github.com/and161185/storefront/internal/config"
	"github.com/and161185/storefront/internal/repository"
	"github.com/and161185/storefront/internal/repository/httpapi"
	"github.com/and161185/storefront/internal/repository/rediscache"
	"github.com/and161185/storefront/internal/session"
	"github.com/and161185/storefront/internal/tokenstore"
)

// App is the application state handed to the CLI and shell.
type App struct {
	Catalog *catalog.Catalog
	Cart    *cart.Cart
	Session *session.Session
	Tokens  repository.TokenStore

	closers []func() error
}

// NewWith builds an App over explicit collaborators.
func NewWith(products repository.ProductRepository, auth repository.AuthRepository, tokens repository.TokenStore, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		Catalog: catalog.New(products, log.Named("catalog")),
		Cart:    cart.New(log.Named("cart")),
		Session: session.New(auth, tokens, log.Named("session")),
		Tokens:  tokens,
	}
}

// New builds an App from cfg: the REST client, optionally behind the Redis
// cache, and the configured token store.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(log.Named("api")),
		httpapi.WithHTTPClient(apiHTTPClient(cfg.API)),
	}
	if cfg.API.CountQuery {
		opts = append(opts, httpapi.WithCountQuery())
	}
	api, err := httpapi.New(cfg.API.BaseURL, cfg.API.Timeout, opts...)
	if err != nil {
		return nil, err
	}

	var (
		products repository.ProductRepository = api
		closers  []func() error
	)
	if cfg.Redis.Enabled {
		rdb, err := rediscache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("product cache: %w", err)
		}
		products = rediscache.New(api, rdb, cfg.Redis.TTL, log.Named("cache"))
		closers = append(closers, rdb.Close)
	}

	a := NewWith(products, api, tokenStore(cfg.Tokens), log)
	a.closers = closers
	return a, nil
}

func tokenStore(c config.TokensConfig) repository.TokenStore {
	if c.Ephemeral {
		return tokenstore.NewMemory()
	}
	return tokenstore.NewFile(c.Path, tokenstore.WithPassphrase(c.Passphrase))
}

// Close releases connections opened by New.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// apiHTTPClient returns a client with its own keep-alive pool for the API host.
func apiHTTPClient(cfg config.APIConfig) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		tr.MaxIdleConns = cfg.MaxIdleConns
		tr.MaxIdleConnsPerHost = cfg.MaxIdleConns
	}
	if cfg.IdleConnTimeout > 0 {
		tr.IdleConnTimeout = cfg.IdleConnTimeout
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: tr}
}
