package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type fakeProducts struct {
	getProducts func(ctx context.Context, f model.Filter) (model.ProductPage, error)
	getProduct  func(ctx context.Context, id int) (model.Product, error)

	registerErr error
	updateErr   error
	deleteErr   error
	catsErr     error

	calls atomic.Int32
}

var _ repository.ProductRepository = (*fakeProducts)(nil)

func (f *fakeProducts) GetProducts(ctx context.Context, flt model.Filter) (model.ProductPage, error) {
	f.calls.Add(1)
	return f.getProducts(ctx, flt)
}
func (f *fakeProducts) GetProduct(ctx context.Context, id int) (model.Product, error) {
	return f.getProduct(ctx, id)
}
func (f *fakeProducts) RegisterProduct(_ context.Context, d model.ProductDraft) (model.Product, error) {
	if f.registerErr != nil {
		return model.Product{}, f.registerErr
	}
	return model.Product{ID: 100, Title: d.Title, Price: d.Price, Images: d.Images}, nil
}
func (f *fakeProducts) UpdateProduct(_ context.Context, p model.ProductPatch, id int) (model.Product, error) {
	if f.updateErr != nil {
		return model.Product{}, f.updateErr
	}
	out := model.Product{ID: id, Title: "old", Images: []string{"a"}}
	if p.Title != nil {
		out.Title = *p.Title
	}
	return out, nil
}
func (f *fakeProducts) DeleteProduct(context.Context, model.Product) error { return f.deleteErr }
func (f *fakeProducts) GetCategories(context.Context) ([]model.Category, error) {
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	return []model.Category{{ID: 1, Name: "Clothes"}, {ID: 2, Name: "Shoes"}}, nil
}

func pageOf(total int, ps ...model.Product) func(context.Context, model.Filter) (model.ProductPage, error) {
	return func(context.Context, model.Filter) (model.ProductPage, error) {
		return model.ProductPage{Products: ps, Total: total}, nil
	}
}

func TestFetchMany_NormalizesImages(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{getProducts: pageOf(2,
		model.Product{ID: 1, Title: "p1", Price: 5, Images: []string{}},
		model.Product{ID: 2, Title: "p2", Price: 7, Images: []string{"https://x/2.png"}},
	)}
	c := New(repo, zaptest.NewLogger(t))

	f := model.Filter{CategoryID: 0, Page: 1, ItemsPerPage: 30}
	s := c.FetchMany(context.Background(), f)

	require.Equal(t, []string{NoImage}, s.Products[0].Images)
	require.Equal(t, 2, s.Total)
	require.False(t, s.Loading())
	require.Empty(t, s.Error)
	require.Equal(t, lifecycle.Fulfilled, s.List.Status)
	require.Equal(t, &model.PriceRange{Min: 5, Max: 7}, s.MinMaxPrice)
}

func TestFetchMany_RejectionClearsList(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{getProducts: pageOf(1, model.Product{ID: 1, Price: 1})}
	c := New(repo, nil)
	s := c.FetchMany(context.Background(), model.DefaultFilter())
	require.Len(t, s.Products, 1)

	repo.getProducts = func(context.Context, model.Filter) (model.ProductPage, error) {
		return model.ProductPage{}, errors.New("timeout")
	}
	s = c.FetchMany(context.Background(), model.DefaultFilter())

	require.Empty(t, s.Products)
	require.Empty(t, s.SortedProducts)
	require.False(t, s.Loading())
	require.Equal(t, "timeout", s.Error)
	require.Equal(t, lifecycle.Rejected, s.List.Status)
}

func TestFetchMany_InvalidFilterSkipsRepository(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{getProducts: pageOf(0)}
	c := New(repo, nil)
	s := c.FetchMany(context.Background(), model.Filter{Page: 0, ItemsPerPage: 30})

	require.Zero(t, repo.calls.Load())
	require.Contains(t, s.Error, errs.ErrInvalidFilter.Error())
}

func TestFetchMany_PendingClearsErrorAndList(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	repo := &fakeProducts{getProducts: func(context.Context, model.Filter) (model.ProductPage, error) {
		close(entered)
		<-release
		return model.ProductPage{Products: []model.Product{{ID: 1}}, Total: 1}, nil
	}}
	repo.catsErr = errors.New("earlier failure")
	c := New(repo, nil)
	require.Equal(t, "earlier failure", c.FetchCategories(context.Background()).Error)

	done := make(chan State)
	go func() { done <- c.FetchMany(context.Background(), model.DefaultFilter()) }()
	<-entered

	mid := c.State()
	require.True(t, mid.Loading())
	require.Empty(t, mid.Products)
	require.Empty(t, mid.Error)

	close(release)
	require.Len(t, (<-done).Products, 1)
}

func TestFetchMany_SortAppliedAtResolution(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	repo := &fakeProducts{getProducts: func(context.Context, model.Filter) (model.ProductPage, error) {
		close(entered)
		<-release
		return model.ProductPage{Products: []model.Product{{ID: 1, Price: 1}, {ID: 2, Price: 9}}, Total: 2}, nil
	}}
	c := New(repo, nil)

	done := make(chan State)
	go func() { done <- c.FetchMany(context.Background(), model.DefaultFilter()) }()
	<-entered
	c.SetSort(&model.Sort{Field: model.SortByPrice, Direction: model.Desc})
	close(release)

	s := <-done
	require.Equal(t, []int{1, 2}, ids(s.Products))
	require.Equal(t, []int{2, 1}, ids(s.SortedProducts))
	require.Equal(t, []int{2, 1}, ids(s.View()))
}

func TestFetchMany_StaleResolutionDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	slowRelease := make(chan struct{})
	slowEntered := make(chan struct{})
	repo := &fakeProducts{getProducts: func(_ context.Context, f model.Filter) (model.ProductPage, error) {
		if f.Title == "old" {
			close(slowEntered)
			<-slowRelease
			return model.ProductPage{Products: []model.Product{{ID: 1, Title: "old"}}, Total: 1}, nil
		}
		return model.ProductPage{Products: []model.Product{{ID: 2, Title: "new"}}, Total: 1}, nil
	}}
	c := New(repo, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.FetchMany(context.Background(), model.DefaultFilter().WithTitle("old"))
	}()
	<-slowEntered

	s := c.FetchMany(context.Background(), model.DefaultFilter().WithTitle("new"))
	require.Equal(t, []int{2}, ids(s.Products))

	close(slowRelease)
	wg.Wait()

	s = c.State()
	require.Equal(t, []int{2}, ids(s.Products), "earlier request must not clobber the later one")
	require.Equal(t, lifecycle.Fulfilled, s.List.Status)
}

func TestFetchMany_BoundsAcrossFilters(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{getProducts: pageOf(2, model.Product{ID: 1, Price: 1}, model.Product{ID: 2, Price: 100})}
	c := New(repo, nil)
	c.FetchMany(context.Background(), model.DefaultFilter())

	repo.getProducts = pageOf(1, model.Product{ID: 3, Price: 50})
	s := c.FetchMany(context.Background(), model.DefaultFilter().WithCategory(3))
	require.Equal(t, &model.PriceRange{Min: 1, Max: 100}, s.MinMaxPrice)

	s = c.ResetPriceBounds()
	require.Nil(t, s.MinMaxPrice)
	s = c.FetchMany(context.Background(), model.DefaultFilter().WithCategory(3))
	require.Equal(t, &model.PriceRange{Min: 50, Max: 50}, s.MinMaxPrice)
}

func TestSetSort_RecomputesWithoutFetch(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{getProducts: pageOf(3,
		model.Product{ID: 1, Title: "b", Price: 2},
		model.Product{ID: 2, Title: "a", Price: 3},
		model.Product{ID: 3, Title: "c", Price: 1},
	)}
	c := New(repo, nil)
	c.FetchMany(context.Background(), model.DefaultFilter())

	s := c.SetSort(&model.Sort{Field: model.SortByTitle, Direction: model.Asc})
	require.Equal(t, []int{2, 1, 3}, ids(s.SortedProducts))
	require.Equal(t, []int{1, 2, 3}, ids(s.Products))
	require.EqualValues(t, 1, repo.calls.Load())

	s = c.SetSort(nil)
	require.Equal(t, []int{1, 2, 3}, ids(s.View()))
}

func TestSetFilter_DoesNotFetch(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{getProducts: pageOf(0)}
	c := New(repo, nil)

	f := model.DefaultFilter().WithTitle("hat")
	s := c.SetFilter(f)
	require.NotNil(t, s.Filter)
	require.True(t, s.Filter.Equal(f))
	require.Zero(t, repo.calls.Load())
}

func TestProductSlots(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{
		getProduct: func(_ context.Context, id int) (model.Product, error) {
			return model.Product{ID: id, Title: "one"}, nil
		},
	}
	c := New(repo, nil)
	ctx := context.Background()

	require.Nil(t, c.State().Current())

	s := c.FetchOne(ctx, 7)
	require.Equal(t, 7, s.Current().ID)
	require.Equal(t, []string{NoImage}, s.Current().Images)

	s = c.Create(ctx, model.ProductDraft{Title: "new", Price: 3})
	require.Equal(t, 100, s.Current().ID)
	require.Equal(t, 7, s.Slot(KindFetch).Product.ID, "fetch slot is kept")

	title := "renamed"
	s = c.Update(ctx, 7, model.ProductPatch{Title: &title})
	require.Equal(t, "renamed", s.Current().Title)

	s = c.Delete(ctx, model.Product{ID: 7})
	require.Nil(t, s.Current())
	require.Equal(t, lifecycle.Fulfilled, s.Slot(KindDelete).Op.Status)
	require.NotNil(t, s.Slot(KindUpdate).Product)
}

func TestProductSlots_Failures(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{
		getProduct: func(context.Context, int) (model.Product, error) {
			return model.Product{}, errs.ErrNotFound
		},
		updateErr: errors.New(""),
		deleteErr: errors.New("forbidden"),
	}
	c := New(repo, nil)
	ctx := context.Background()

	s := c.FetchOne(ctx, 1)
	require.Nil(t, s.Current())
	require.Equal(t, "not found", s.Error)

	s = c.Update(ctx, 1, model.ProductPatch{})
	require.Equal(t, errs.FallbackMessage, s.Error)
	require.Equal(t, errs.FallbackMessage, s.Slot(KindUpdate).Op.Err)

	s = c.Delete(ctx, model.Product{ID: 1})
	require.Equal(t, "forbidden", s.Error)
	require.False(t, s.Loading())
}

func TestFetchCategories(t *testing.T) {
	t.Parallel()

	repo := &fakeProducts{}
	c := New(repo, nil)

	s := c.FetchCategories(context.Background())
	require.Len(t, s.Categories, 2)
	require.Equal(t, lifecycle.Fulfilled, s.CategoryOp.Status)

	repo.catsErr = errors.New("down")
	s = c.FetchCategories(context.Background())
	require.Equal(t, "down", s.Error)
	require.Len(t, s.Categories, 2, "previous categories are kept")
}

func TestSubscribeSeesEveryTransition(t *testing.T) {
	t.Parallel()

	c := New(&fakeProducts{getProducts: pageOf(0)}, nil)
	var statuses []lifecycle.Status
	cancel := c.Subscribe(func(s State) { statuses = append(statuses, s.List.Status) })
	defer cancel()

	c.FetchMany(context.Background(), model.DefaultFilter())
	require.Equal(t, []lifecycle.Status{lifecycle.Pending, lifecycle.Fulfilled}, statuses)
}

func TestReduce_OutOfOrderPending(t *testing.T) {
	t.Parallel()

	f := model.DefaultFilter()
	s := Reduce(Initial(), ListPending{Token: 2, Filter: f})
	s = Reduce(s, ListPending{Token: 1, Filter: f})
	require.Equal(t, uint64(2), s.List.Latest)

	s = Reduce(s, ListFulfilled{Token: 2, Filter: f, Page: model.ProductPage{Products: []model.Product{{ID: 2, Price: 2}}, Total: 1}})
	s = Reduce(s, ListFulfilled{Token: 1, Filter: f, Page: model.ProductPage{Products: []model.Product{{ID: 1, Price: 1}}, Total: 1}})
	require.Equal(t, []int{2}, ids(s.Products))
	require.Equal(t, lifecycle.Fulfilled, s.List.Status)

	// an older pending must not wipe the newer result
	s = Reduce(s, ListPending{Token: 1, Filter: f})
	require.Equal(t, []int{2}, ids(s.Products))

	s = Reduce(s, ProductPending{Token: 5, Kind: KindFetch})
	s = Reduce(s, ProductPending{Token: 4, Kind: KindFetch})
	s = Reduce(s, ProductFulfilled{Token: 5, Kind: KindFetch, Product: model.Product{ID: 5}})
	s = Reduce(s, ProductFulfilled{Token: 4, Kind: KindFetch, Product: model.Product{ID: 4}})
	require.Equal(t, 5, s.Current().ID)

	s = Reduce(s, CategoriesPending{Token: 7})
	s = Reduce(s, CategoriesRejected{Token: 7, Err: errors.New("down")})
	s = Reduce(s, CategoriesPending{Token: 6})
	require.Equal(t, "down", s.Error, "an older pending does not clear the newer error")
	require.False(t, s.Loading())
}

func TestReduce_ListFulfilledUsesActiveFilter(t *testing.T) {
	t.Parallel()

	fetched := model.DefaultFilter().WithItemsPerPage(2)
	active := fetched.WithPage(3)

	s := Reduce(State{}, FilterSet{Filter: active})
	s = Reduce(s, ListPending{Token: 1, Filter: fetched})
	page := model.ProductPage{Products: []model.Product{{ID: 1, Price: 4}, {ID: 2, Price: 6}}}
	s = Reduce(s, ListFulfilled{Token: 1, Filter: fetched, Page: page})

	require.Equal(t, 6, s.Total, "total covers the items before the active page")
	require.Equal(t, &model.PriceRange{Min: 4, Max: 6}, s.MinMaxPrice)

	s = Reduce(State{}, ListPending{Token: 1, Filter: fetched})
	s = Reduce(s, ListFulfilled{Token: 1, Filter: fetched, Page: page})
	require.Equal(t, 2, s.Total, "fetched filter is used until one is set")
}
