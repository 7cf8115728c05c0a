// Package cart keeps the shopping cart and the favorites list in process memory.
//
// Two items are the same when every field but Quantity matches. Adding an item
// that is already present is a no-op; quantities change only via UpdateQuantity.
package cart

import (
	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/store"
)

// State is the cart slice.
type State struct {
	Items     []model.CartItem
	Favorites []model.CartItem
}

// Initial returns an empty cart.
func Initial() State {
	return State{Items: []model.CartItem{}, Favorites: []model.CartItem{}}
}

// Subtotal is the sum of price times quantity over the cart.
func (s State) Subtotal() float64 {
	var sum float64
	for _, it := range s.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Count is the number of units in the cart.
func (s State) Count() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Event is a cart state transition.
type Event interface{ EventName() string }

type (
	Added           struct{ Item model.CartItem }
	Removed         struct{ Item model.CartItem }
	QuantityUpdated struct{ Item model.CartItem }
	FavoriteAdded   struct{ Item model.CartItem }
	FavoriteRemoved struct{ Item model.CartItem }
)

func (Added) EventName() string           { return "cart/add" }
func (Removed) EventName() string         { return "cart/remove" }
func (QuantityUpdated) EventName() string { return "cart/quantity" }
func (FavoriteAdded) EventName() string   { return "cart/favorites/add" }
func (FavoriteRemoved) EventName() string { return "cart/favorites/remove" }

// Reduce is the pure cart transition function.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Added:
		if e.Item.Quantity > 0 {
			s.Items = add(s.Items, e.Item)
		}
	case Removed:
		s.Items = remove(s.Items, e.Item)
	case QuantityUpdated:
		if e.Item.Quantity > 0 {
			s.Items = replace(s.Items, e.Item)
		}
	case FavoriteAdded:
		s.Favorites = add(s.Favorites, e.Item)
	case FavoriteRemoved:
		s.Favorites = remove(s.Favorites, e.Item)
	}
	return s
}

func indexOf(items []model.CartItem, it model.CartItem) int {
	for i := range items {
		if items[i].SameAs(it) {
			return i
		}
	}
	return -1
}

func add(items []model.CartItem, it model.CartItem) []model.CartItem {
	if indexOf(items, it) >= 0 {
		return items
	}
	out := make([]model.CartItem, 0, len(items)+1)
	out = append(out, items...)
	return append(out, it)
}

func remove(items []model.CartItem, it model.CartItem) []model.CartItem {
	i := indexOf(items, it)
	if i < 0 {
		return items
	}
	out := make([]model.CartItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func replace(items []model.CartItem, it model.CartItem) []model.CartItem {
	i := indexOf(items, it)
	if i < 0 {
		return items
	}
	out := append([]model.CartItem(nil), items...)
	out[i] = it
	return out
}

// Cart is the cart slice bound to a store.
type Cart struct {
	st *store.Store[State, Event]
}

// New constructs an empty Cart.
func New(log *zap.Logger) *Cart {
	return &Cart{st: store.New(Initial(), Reduce, log)}
}

// State returns the current cart state.
func (c *Cart) State() State { return c.st.State() }

// Subscribe registers fn for every state change.
func (c *Cart) Subscribe(fn func(State)) (cancel func()) { return c.st.Subscribe(fn) }

// Add puts item in the cart unless the same variant is already there.
func (c *Cart) Add(item model.CartItem) State { return c.st.Dispatch(Added{Item: item}) }

// Remove drops the first matching variant; absent items are ignored.
func (c *Cart) Remove(item model.CartItem) State { return c.st.Dispatch(Removed{Item: item}) }

// UpdateQuantity replaces the matching variant with item; absent items are ignored.
func (c *Cart) UpdateQuantity(item model.CartItem) State {
	return c.st.Dispatch(QuantityUpdated{Item: item})
}

// AddFavorite marks item as favorite unless it already is.
func (c *Cart) AddFavorite(item model.CartItem) State {
	return c.st.Dispatch(FavoriteAdded{Item: item})
}

// RemoveFavorite unmarks the first matching favorite.
func (c *Cart) RemoveFavorite(item model.CartItem) State {
	return c.st.Dispatch(FavoriteRemoved{Item: item})
}
