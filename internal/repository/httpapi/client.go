// Package httpapi implements the product and auth repositories against a
// storefront REST API: the bundled server or any API with the same routes.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

// TotalCountHeader carries the unpaginated match count of a listing.
const TotalCountHeader = "X-Total-Count"

var (
	_ repository.ProductRepository = (*Client)(nil)
	_ repository.AuthRepository    = (*Client)(nil)
)

// Client talks to the REST API rooted at base.
type Client struct {
	base       *url.URL
	hc         *http.Client
	log        *zap.Logger
	countQuery bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

// WithCountQuery always counts matches with a concurrent unpaginated query,
// for APIs known not to send X-Total-Count.
func WithCountQuery() Option { return func(c *Client) { c.countQuery = true } }

// New constructs a Client for baseURL, e.g. "http://localhost:8080/api/v1".
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q: scheme and host are required", baseURL)
	}
	c := &Client{base: u, hc: &http.Client{Timeout: timeout}, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// APIError is a non-2xx response. Its text is the server message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Unwrap maps the status code onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.ErrUnauthorized
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	case http.StatusConflict:
		return errs.ErrAlreadyExists
	case http.StatusBadRequest:
		return errs.ErrValidation
	default:
		return nil
	}
}

// --- products ---

func listQuery(f model.Filter, paginate bool) url.Values {
	q := url.Values{}
	if f.Title != "" {
		q.Set("title", f.Title)
	}
	if f.CategoryID != model.DefaultCategoryID {
		q.Set("categoryId", strconv.Itoa(f.CategoryID))
	}
	if paginate {
		q.Set("offset", strconv.Itoa(f.Offset()))
		q.Set("limit", strconv.Itoa(f.ItemsPerPage))
	}
	setFloat := func(key string, v *float64) {
		if v != nil {
			q.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	setFloat("price", f.Price)
	setFloat("price_min", f.PriceMin)
	setFloat("price_max", f.PriceMax)
	return q
}

// GetProducts fetches one page. The total comes from X-Total-Count or, when the
// API does not send it, from counting the unpaginated listing.
func (c *Client) GetProducts(ctx context.Context, f model.Filter) (model.ProductPage, error) {
	if err := f.Validate(); err != nil {
		return model.ProductPage{}, err
	}
	if c.countQuery {
		return c.pageAndCount(ctx, f)
	}

	var page []model.Product
	hdr, err := c.do(ctx, http.MethodGet, "/products", listQuery(f, true), nil, "", &page)
	if err != nil {
		return model.ProductPage{}, err
	}
	if v := hdr.Get(TotalCountHeader); v != "" {
		if total, err := strconv.Atoi(v); err == nil {
			return model.ProductPage{Products: page, Total: total}, nil
		}
	}
	total, err := c.count(ctx, f)
	if err != nil {
		return model.ProductPage{}, err
	}
	return model.ProductPage{Products: page, Total: total}, nil
}

func (c *Client) pageAndCount(ctx context.Context, f model.Filter) (model.ProductPage, error) {
	var (
		page  []model.Product
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.do(gctx, http.MethodGet, "/products", listQuery(f, true), nil, "", &page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = c.count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ProductPage{}, err
	}
	return model.ProductPage{Products: page, Total: total}, nil
}

func (c *Client) count(ctx context.Context, f model.Filter) (int, error) {
	var all []json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, "/products", listQuery(f, false), nil, "", &all); err != nil {
		return 0, err
	}
	return len(all), nil
}

func (c *Client) GetProduct(ctx context.Context, id int) (model.Product, error) {
	var p model.Product
	_, err := c.do(ctx, http.MethodGet, "/products/"+strconv.Itoa(id), nil, nil, "", &p)
	return p, err
}

func (c *Client) RegisterProduct(ctx context.Context, d model.ProductDraft) (model.Product, error) {
	var p model.Product
	_, err := c.do(ctx, http.MethodPost, "/products", nil, d, "", &p)
	return p, err
}

func (c *Client) UpdateProduct(ctx context.Context, patch model.ProductPatch, id int) (model.Product, error) {
	var p model.Product
	_, err := c.do(ctx, http.MethodPut, "/products/"+strconv.Itoa(id), nil, patch, "", &p)
	return p, err
}

func (c *Client) DeleteProduct(ctx context.Context, p model.Product) error {
	_, err := c.do(ctx, http.MethodDelete, "/products/"+strconv.Itoa(p.ID), nil, nil, "", nil)
	return err
}

func (c *Client) GetCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	_, err := c.do(ctx, http.MethodGet, "/categories", nil, nil, "", &cats)
	return cats, err
}

// --- auth ---

func (c *Client) RegisterUser(ctx context.Context, info model.RegisterUserInfo) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodPost, "/users", nil, info, "", &u)
	return u, err
}

func (c *Client) LoginUser(ctx context.Context, creds model.Credentials) (model.UserToken, error) {
	var t model.UserToken
	_, err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, "", &t)
	return t, err
}

func (c *Client) GetUserWithSession(ctx context.Context, tokens model.UserToken) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, tokens.AccessToken, &u)
	return u, err
}

// --- transport ---

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in any, bearer string, out any) (http.Header, error) {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.log.Debug("api",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.Header, nil
}

// decodeError reads {"message": "..."} or {"message": ["...", ...]}.
func decodeError(resp *http.Response) error {
	e := &APIError{Status: resp.StatusCode}
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) != nil || len(body.Message) == 0 {
		return e
	}
	var one string
	if json.Unmarshal(body.Message, &one) == nil {
		e.Message = one
		return e
	}
	var many []string
	if json.Unmarshal(body.Message, &many) == nil {
		e.Message = strings.Join(many, "; ")
	}
	return e
}
