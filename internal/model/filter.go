package model

import (
	"fmt"
	"strings"

	"github.com/and161185/storefront/internal/errs"
)

// Listing defaults used by the storefront home page.
const (
	DefaultCategoryID   = 0
	DefaultPage         = 1
	DefaultItemsPerPage = 30
)

// Filter constrains which products are fetched.
type Filter struct {
	Title        string
	CategoryID   int      // 0 means all categories
	Page         int      // 1-based
	ItemsPerPage int      // > 0
	Price        *float64 // single-point price; exclusive with PriceMin/PriceMax
	PriceMin     *float64
	PriceMax     *float64
}

// DefaultFilter returns the filter the storefront starts with.
func DefaultFilter() Filter {
	return Filter{CategoryID: DefaultCategoryID, Page: DefaultPage, ItemsPerPage: DefaultItemsPerPage}
}

// Validate checks pagination and price invariants.
func (f Filter) Validate() error {
	if f.Page < 1 {
		return fmt.Errorf("%w: page %d < 1", errs.ErrInvalidFilter, f.Page)
	}
	if f.ItemsPerPage <= 0 {
		return fmt.Errorf("%w: itemsPerPage %d <= 0", errs.ErrInvalidFilter, f.ItemsPerPage)
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return fmt.Errorf("%w: price_min %v > price_max %v", errs.ErrInvalidFilter, *f.PriceMin, *f.PriceMax)
	}
	if f.Price != nil && (f.PriceMin != nil || f.PriceMax != nil) {
		return fmt.Errorf("%w: price and price range are exclusive", errs.ErrInvalidFilter)
	}
	return nil
}

// Offset returns the zero-based index of the first item of the page.
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.ItemsPerPage
}

// HasPriceRange reports whether an explicit price range is set.
func (f Filter) HasPriceRange() bool { return f.PriceMin != nil || f.PriceMax != nil }

// WithTitle sets the search text and goes back to the first page.
func (f Filter) WithTitle(title string) Filter {
	f.Title = strings.TrimSpace(title)
	f.Page = DefaultPage
	return f
}

// WithCategory selects a category and goes back to the first page.
func (f Filter) WithCategory(id int) Filter {
	f.CategoryID = id
	f.Page = DefaultPage
	return f
}

// WithPage moves to page.
func (f Filter) WithPage(page int) Filter {
	f.Page = page
	return f
}

// WithItemsPerPage changes the page size and goes back to the first page.
func (f Filter) WithItemsPerPage(n int) Filter {
	f.ItemsPerPage = n
	f.Page = DefaultPage
	return f
}

// WithPriceRange sets an explicit price range, clearing the single-point price.
func (f Filter) WithPriceRange(lo, hi float64) (Filter, error) {
	if lo > hi {
		return f, fmt.Errorf("%w: price_min %v > price_max %v", errs.ErrInvalidFilter, lo, hi)
	}
	f.PriceMin = &lo
	f.PriceMax = &hi
	f.Price = nil
	f.Page = DefaultPage
	return f, nil
}

// Equal reports whether two filters select the same listing.
func (f Filter) Equal(o Filter) bool {
	return f.Title == o.Title && f.CategoryID == o.CategoryID && f.Page == o.Page &&
		f.ItemsPerPage == o.ItemsPerPage && eqPtr(f.Price, o.Price) &&
		eqPtr(f.PriceMin, o.PriceMin) && eqPtr(f.PriceMax, o.PriceMax)
}

func eqPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SortField is the product attribute a listing is ordered by.
type SortField string

// Direction is ascending or descending.
type Direction string

const (
	SortByPrice SortField = "price"
	SortByTitle SortField = "title"

	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is an opaque ordering key consumed by the sort engine.
type Sort struct {
	Field     SortField
	Direction Direction
}

// String renders the key as "field:direction".
func (s Sort) String() string { return string(s.Field) + ":" + string(s.Direction) }

// ParseSort parses "field[:direction]"; direction defaults to asc.
func ParseSort(v string) (Sort, error) {
	field, dir, _ := strings.Cut(strings.ToLower(strings.TrimSpace(v)), ":")
	s := Sort{Field: SortField(field), Direction: Direction(dir)}
	if s.Direction == "" {
		s.Direction = Asc
	}
	switch s.Field {
	case SortByPrice, SortByTitle:
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort field %q", errs.ErrValidation, field)
	}
	switch s.Direction {
	case Asc, Desc:
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort direction %q", errs.ErrValidation, dir)
	}
	return s, nil
}
