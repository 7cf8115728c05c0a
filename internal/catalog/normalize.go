// Package catalog holds the product listing state: normalization of repository
// payloads, sorted views and the lifecycle of every catalog operation.
package catalog

import (
	"strings"

	"github.com/and161185/storefront/internal/model"
)

// NoImage marks a product without pictures; renderers swap it for a placeholder.
const NoImage = "no-image"

// Normalize turns a raw page into FilteredProducts for the active filter.
//
// Price bounds widen and never narrow, whatever price range the filter carries.
// Total is the server count, raised to cover the items already seen up to this
// page when an upstream reports less.
func Normalize(page model.ProductPage, filter model.Filter, prior *model.PriceRange) model.FilteredProducts {
	if len(page.Products) == 0 {
		return model.FilteredProducts{Products: []model.Product{}, Total: 0, MinMaxPrice: prior}
	}

	products := make([]model.Product, len(page.Products))
	for i, p := range page.Products {
		products[i] = CheckImages(p)
	}

	total := max(page.Total, filter.Offset()+len(products))
	return model.FilteredProducts{Products: products, Total: total, MinMaxPrice: widen(prior, products)}
}

func widen(prior *model.PriceRange, products []model.Product) *model.PriceRange {
	var r model.PriceRange
	if prior != nil {
		r = *prior
	} else {
		r = model.PriceRange{Min: products[0].Price, Max: products[0].Price}
	}
	for _, p := range products {
		if p.Price < r.Min {
			r.Min = p.Price
		}
		if p.Price > r.Max {
			r.Max = p.Price
		}
	}
	return &r
}

// CheckImages returns p with a cleaned, non-empty image list.
func CheckImages(p model.Product) model.Product {
	images := make([]string, 0, len(p.Images))
	for _, raw := range p.Images {
		if u := cleanURL(raw); u != "" {
			images = append(images, u)
		}
	}
	if len(images) == 0 {
		images = append(images, NoImage)
	}
	p.Images = images
	return p
}

// cleanURL unwraps entries like `["https://x"]` or `"https://x"` that some
// upstream APIs emit instead of plain URLs.
func cleanURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.Trim(strings.TrimSpace(s), `"\`)
	return strings.TrimSpace(s)
}
