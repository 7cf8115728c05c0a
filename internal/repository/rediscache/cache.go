// Package rediscache decorates a ProductRepository with a Redis read-through cache.
//
// Listing pages are keyed by a generation counter; every catalog write bumps it,
// which orphans all cached pages at once. Orphans expire through their TTL.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

const (
	keyPrefix     = "storefront:"
	genKey        = keyPrefix + "gen"
	categoriesKey = keyPrefix + "categories"
)

// Cmdable is the part of *redis.Client the cache uses.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Repository caches reads of the wrapped repository. Cache failures are logged
// and never surface to callers.
type Repository struct {
	next repository.ProductRepository
	rdb  Cmdable
	ttl  time.Duration
	log  *zap.Logger
}

var _ repository.ProductRepository = (*Repository)(nil)

// New wraps next.
func New(next repository.ProductRepository, rdb Cmdable, ttl time.Duration, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{next: next, rdb: rdb, ttl: ttl, log: log}
}

// NewClient opens a Redis client and checks connectivity.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func productKey(id int) string { return keyPrefix + "product:" + strconv.Itoa(id) }

// pageKey is stable for equal filters.
func pageKey(gen string, f model.Filter) string {
	q := url.Values{}
	q.Set("t", f.Title)
	q.Set("c", strconv.Itoa(f.CategoryID))
	q.Set("p", strconv.Itoa(f.Page))
	q.Set("n", strconv.Itoa(f.ItemsPerPage))
	for k, v := range map[string]*float64{"pe": f.Price, "lo": f.PriceMin, "hi": f.PriceMax} {
		if v != nil {
			q.Set(k, strconv.FormatFloat(*v, 'g', -1, 64))
		}
	}
	return keyPrefix + "products:g" + gen + ":" + q.Encode()
}

type cachedPage struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
}

func (r *Repository) GetProducts(ctx context.Context, f model.Filter) (model.ProductPage, error) {
	gen, err := r.rdb.Get(ctx, genKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		gen = "0"
	case err != nil:
		r.warn("read generation", genKey, err)
		return r.next.GetProducts(ctx, f)
	}

	key := pageKey(gen, f)
	var cp cachedPage
	if r.get(ctx, key, &cp) {
		return model.ProductPage{Products: cp.Products, Total: cp.Total}, nil
	}
	page, err := r.next.GetProducts(ctx, f)
	if err != nil {
		return page, err
	}
	r.set(ctx, key, cachedPage{Products: page.Products, Total: page.Total})
	return page, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int) (model.Product, error) {
	key := productKey(id)
	var p model.Product
	if r.get(ctx, key, &p) {
		return p, nil
	}
	p, err := r.next.GetProduct(ctx, id)
	if err != nil {
		return p, err
	}
	r.set(ctx, key, p)
	return p, nil
}

func (r *Repository) GetCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if r.get(ctx, categoriesKey, &cats) {
		return cats, nil
	}
	cats, err := r.next.GetCategories(ctx)
	if err != nil {
		return cats, err
	}
	r.set(ctx, categoriesKey, cats)
	return cats, nil
}

func (r *Repository) RegisterProduct(ctx context.Context, d model.ProductDraft) (model.Product, error) {
	p, err := r.next.RegisterProduct(ctx, d)
	if err == nil {
		r.invalidate(ctx, p.ID)
	}
	return p, err
}

func (r *Repository) UpdateProduct(ctx context.Context, patch model.ProductPatch, id int) (model.Product, error) {
	p, err := r.next.UpdateProduct(ctx, patch, id)
	if err == nil {
		r.invalidate(ctx, id)
	}
	return p, err
}

func (r *Repository) DeleteProduct(ctx context.Context, p model.Product) error {
	err := r.next.DeleteProduct(ctx, p)
	if err == nil {
		r.invalidate(ctx, p.ID)
	}
	return err
}

// get reports a hit and decodes it into dst.
func (r *Repository) get(ctx context.Context, key string, dst any) bool {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		r.warn("get", key, err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.warn("decode", key, err)
		return false
	}
	return true
}

func (r *Repository) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.warn("encode", key, err)
		return
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.warn("set", key, err)
	}
}

func (r *Repository) invalidate(ctx context.Context, id int) {
	if err := r.rdb.Del(ctx, productKey(id)).Err(); err != nil {
		r.warn("del", productKey(id), err)
	}
	if err := r.rdb.Incr(ctx, genKey).Err(); err != nil {
		r.warn("incr", genKey, err)
	}
}

func (r *Repository) warn(op, key string, err error) {
	r.log.Warn("product cache", zap.String("op", op), zap.String("key", key), zap.Error(err))
}
