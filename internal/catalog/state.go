package catalog

import (
	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/model"
)

// Kind tags the product operation a Slot belongs to.
type Kind int

const (
	KindFetch Kind = iota
	KindCreate
	KindUpdate
	KindDelete
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Slot is the tagged result of one kind of single-product operation.
type Slot struct {
	Kind    Kind
	Op      lifecycle.Op
	Product *model.Product // nil while pending, after failure and after delete
}

// State is the catalog slice. Values are never mutated once published.
type State struct {
	Filter         *model.Filter
	Sort           *model.Sort
	Products       []model.Product
	SortedProducts []model.Product
	Total          int
	MinMaxPrice    *model.PriceRange
	Categories     []model.Category

	List       lifecycle.Op
	CategoryOp lifecycle.Op
	Slots      [kindCount]Slot

	Error string // cleared by any pending op, set by the latest rejection
}

// Initial returns the empty catalog state.
func Initial() State {
	s := State{Products: []model.Product{}, SortedProducts: []model.Product{}, Categories: []model.Category{}}
	for k := range s.Slots {
		s.Slots[k].Kind = Kind(k)
	}
	return s
}

// View returns the listing the storefront shows: sorted when a sort is active.
func (s State) View() []model.Product {
	if s.Sort != nil {
		return s.SortedProducts
	}
	return s.Products
}

// Current returns the product of the most recently dispatched product operation.
func (s State) Current() *model.Product {
	var cur *Slot
	for k := range s.Slots {
		sl := &s.Slots[k]
		if sl.Op.Latest == 0 {
			continue
		}
		if cur == nil || sl.Op.Latest > cur.Op.Latest {
			cur = sl
		}
	}
	if cur == nil {
		return nil
	}
	return cur.Product
}

// Slot returns the slot for kind.
func (s State) Slot(k Kind) Slot { return s.Slots[k] }

// Loading reports whether any catalog request is in flight.
func (s State) Loading() bool {
	if s.List.Loading() || s.CategoryOp.Loading() {
		return true
	}
	for _, sl := range s.Slots {
		if sl.Op.Loading() {
			return true
		}
	}
	return false
}
