package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/and161185/storefront/internal/model"
)

// SortProducts returns an ordered copy of products. A nil key keeps server order.
// Equal keys fall back to ID ascending so repeated sorts are reproducible.
func SortProducts(products []model.Product, key *model.Sort) []model.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []model.Product{}
	}
	if key == nil {
		return out
	}

	byField := compareBy(key.Field)
	slices.SortStableFunc(out, func(a, b model.Product) int {
		c := byField(a, b)
		if key.Direction == model.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func compareBy(f model.SortField) func(a, b model.Product) int {
	switch f {
	case model.SortByPrice:
		return func(a, b model.Product) int { return cmp.Compare(a.Price, b.Price) }
	case model.SortByTitle:
		return func(a, b model.Product) int {
			if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
				return c
			}
			return strings.Compare(a.Title, b.Title)
		}
	default:
		return func(model.Product, model.Product) int { return 0 }
	}
}
