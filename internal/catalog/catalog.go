package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
	"github.com/and161185/storefront/internal/store"
)

// Catalog runs catalog intents against a ProductRepository and folds the
// results into State. Failures never escape: they land in State.Error.
type Catalog struct {
	repo   repository.ProductRepository
	st     *store.Store[State, Event]
	tokens lifecycle.Tokens
	log    *zap.Logger
}

// New constructs a Catalog with an empty state.
func New(repo repository.ProductRepository, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{repo: repo, st: store.New(Initial(), Reduce, log), log: log}
}

// State returns the current catalog state.
func (c *Catalog) State() State { return c.st.State() }

// Subscribe registers fn for every state change.
func (c *Catalog) Subscribe(fn func(State)) (cancel func()) { return c.st.Subscribe(fn) }

// FetchMany loads the page selected by filter.
func (c *Catalog) FetchMany(ctx context.Context, filter model.Filter) State {
	tok := c.tokens.Next()
	c.st.Dispatch(ListPending{Token: tok, Filter: filter})

	if err := filter.Validate(); err != nil {
		return c.settle(ListRejected{Token: tok, Err: err}, err)
	}
	page, err := c.repo.GetProducts(ctx, filter)
	if err != nil {
		return c.settle(ListRejected{Token: tok, Err: err}, err)
	}
	return c.settle(ListFulfilled{Token: tok, Filter: filter, Page: page}, nil)
}

// FetchOne loads a single product into the fetch slot.
func (c *Catalog) FetchOne(ctx context.Context, id int) State {
	return c.product(ctx, KindFetch, func(ctx context.Context) (model.Product, error) {
		return c.repo.GetProduct(ctx, id)
	})
}

// Create registers a product; the stored product lands in the create slot.
func (c *Catalog) Create(ctx context.Context, draft model.ProductDraft) State {
	return c.product(ctx, KindCreate, func(ctx context.Context) (model.Product, error) {
		return c.repo.RegisterProduct(ctx, draft)
	})
}

// Update patches a product; the result lands in the update slot.
func (c *Catalog) Update(ctx context.Context, id int, patch model.ProductPatch) State {
	return c.product(ctx, KindUpdate, func(ctx context.Context) (model.Product, error) {
		return c.repo.UpdateProduct(ctx, patch, id)
	})
}

// Delete removes a product. The listing is left alone; re-fetch if needed.
func (c *Catalog) Delete(ctx context.Context, p model.Product) State {
	return c.product(ctx, KindDelete, func(ctx context.Context) (model.Product, error) {
		return model.Product{}, c.repo.DeleteProduct(ctx, p)
	})
}

// FetchCategories loads the category list.
func (c *Catalog) FetchCategories(ctx context.Context) State {
	tok := c.tokens.Next()
	c.st.Dispatch(CategoriesPending{Token: tok})
	cats, err := c.repo.GetCategories(ctx)
	if err != nil {
		return c.settle(CategoriesRejected{Token: tok, Err: err}, err)
	}
	return c.settle(CategoriesFulfilled{Token: tok, Categories: cats}, nil)
}

// SetSort reorders the loaded products; nil restores server order.
func (c *Catalog) SetSort(s *model.Sort) State { return c.st.Dispatch(SortSet{Sort: s}) }

// SetFilter replaces the active filter. It does not fetch.
func (c *Catalog) SetFilter(f model.Filter) State { return c.st.Dispatch(FilterSet{Filter: f}) }

// ResetPriceBounds forgets the price envelope so the next fetch seeds it anew.
func (c *Catalog) ResetPriceBounds() State { return c.st.Dispatch(PriceBoundsReset{}) }

func (c *Catalog) product(ctx context.Context, kind Kind, call func(context.Context) (model.Product, error)) State {
	tok := c.tokens.Next()
	c.st.Dispatch(ProductPending{Token: tok, Kind: kind})
	p, err := call(ctx)
	if err != nil {
		return c.settle(ProductRejected{Token: tok, Kind: kind, Err: err}, err)
	}
	return c.settle(ProductFulfilled{Token: tok, Kind: kind, Product: p}, nil)
}

func (c *Catalog) settle(ev Event, err error) State {
	if err != nil {
		c.log.Warn("catalog request failed", zap.String("event", ev.EventName()), zap.Error(err))
	}
	return c.st.Dispatch(ev)
}
