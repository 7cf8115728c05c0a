package catalog

import (
	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
)

// Event is a catalog state transition.
type Event interface{ EventName() string }

type (
	ListPending struct {
		Token  uint64
		Filter model.Filter
	}
	ListFulfilled struct {
		Token  uint64
		Filter model.Filter
		Page   model.ProductPage
	}
	ListRejected struct {
		Token uint64
		Err   error
	}

	ProductPending struct {
		Token uint64
		Kind  Kind
	}
	ProductFulfilled struct {
		Token   uint64
		Kind    Kind
		Product model.Product // ignored for KindDelete
	}
	ProductRejected struct {
		Token uint64
		Kind  Kind
		Err   error
	}

	CategoriesPending   struct{ Token uint64 }
	CategoriesFulfilled struct {
		Token      uint64
		Categories []model.Category
	}
	CategoriesRejected struct {
		Token uint64
		Err   error
	}

	SortSet          struct{ Sort *model.Sort }
	FilterSet        struct{ Filter model.Filter }
	PriceBoundsReset struct{}
)

func (ListPending) EventName() string         { return "catalog/list/pending" }
func (ListFulfilled) EventName() string       { return "catalog/list/fulfilled" }
func (ListRejected) EventName() string        { return "catalog/list/rejected" }
func (e ProductPending) EventName() string    { return "catalog/" + e.Kind.String() + "/pending" }
func (e ProductFulfilled) EventName() string  { return "catalog/" + e.Kind.String() + "/fulfilled" }
func (e ProductRejected) EventName() string   { return "catalog/" + e.Kind.String() + "/rejected" }
func (CategoriesPending) EventName() string   { return "catalog/categories/pending" }
func (CategoriesFulfilled) EventName() string { return "catalog/categories/fulfilled" }
func (CategoriesRejected) EventName() string  { return "catalog/categories/rejected" }
func (SortSet) EventName() string             { return "catalog/sort" }
func (FilterSet) EventName() string           { return "catalog/filter" }
func (PriceBoundsReset) EventName() string    { return "catalog/price-bounds/reset" }

// Reduce is the pure catalog transition function.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case ListPending:
		if s.List.Superseded(e.Token) {
			return s
		}
		s.List = s.List.Begin(e.Token)
		s.Products = []model.Product{}
		s.SortedProducts = []model.Product{}
		s.Error = ""

	case ListFulfilled:
		if !s.List.Accepts(e.Token) {
			return s
		}
		active := e.Filter
		if s.Filter != nil {
			active = *s.Filter
		}
		fp := Normalize(e.Page, active, s.MinMaxPrice)
		s.List = s.List.Fulfill(e.Token)
		s.Products = fp.Products
		s.SortedProducts = SortProducts(fp.Products, s.Sort)
		s.Total = fp.Total
		s.MinMaxPrice = fp.MinMaxPrice

	case ListRejected:
		if !s.List.Accepts(e.Token) {
			return s
		}
		s.List = s.List.Reject(e.Token, e.Err)
		s.Products = []model.Product{}
		s.SortedProducts = []model.Product{}
		s.Error = errs.Message(e.Err)

	case ProductPending:
		sl := s.Slots[e.Kind]
		if sl.Op.Superseded(e.Token) {
			return s
		}
		sl.Op = sl.Op.Begin(e.Token)
		sl.Product = nil
		s.Slots[e.Kind] = sl
		s.Error = ""

	case ProductFulfilled:
		sl := s.Slots[e.Kind]
		if !sl.Op.Accepts(e.Token) {
			return s
		}
		sl.Op = sl.Op.Fulfill(e.Token)
		sl.Product = nil
		if e.Kind != KindDelete {
			p := CheckImages(e.Product)
			sl.Product = &p
		}
		s.Slots[e.Kind] = sl

	case ProductRejected:
		sl := s.Slots[e.Kind]
		if !sl.Op.Accepts(e.Token) {
			return s
		}
		sl.Op = sl.Op.Reject(e.Token, e.Err)
		sl.Product = nil
		s.Slots[e.Kind] = sl
		s.Error = errs.Message(e.Err)

	case CategoriesPending:
		if s.CategoryOp.Superseded(e.Token) {
			return s
		}
		s.CategoryOp = s.CategoryOp.Begin(e.Token)
		s.Error = ""

	case CategoriesFulfilled:
		if !s.CategoryOp.Accepts(e.Token) {
			return s
		}
		s.CategoryOp = s.CategoryOp.Fulfill(e.Token)
		s.Categories = append([]model.Category{}, e.Categories...)

	case CategoriesRejected:
		if !s.CategoryOp.Accepts(e.Token) {
			return s
		}
		s.CategoryOp = s.CategoryOp.Reject(e.Token, e.Err)
		s.Error = errs.Message(e.Err)

	case SortSet:
		s.Sort = e.Sort
		s.SortedProducts = SortProducts(s.Products, e.Sort)

	case FilterSet:
		f := e.Filter
		s.Filter = &f

	case PriceBoundsReset:
		s.MinMaxPrice = nil
	}
	return s
}
