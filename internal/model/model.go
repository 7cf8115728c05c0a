// Package model defines domain entities shared by the state slices and repositories.
package model

// Category groups products in the catalog.
type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Product is a single catalog entry as delivered by a ProductRepository.
type Product struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"` // >= 0
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
	Images      []string `json:"images"` // ordered image URLs; never empty after normalization
}

// ProductPage is one page of a filtered listing plus the server-side total.
type ProductPage struct {
	Products []Product
	Total    int // authoritative count for the filter, independent of len(Products)
}

// PriceRange is a closed [Min, Max] price envelope.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilteredProducts is the normalized result of a listing fetch.
type FilteredProducts struct {
	Products    []Product
	Total       int
	MinMaxPrice *PriceRange // nil until some price has been observed
}

// ProductDraft is the payload to register a new product.
type ProductDraft struct {
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	CategoryID  int      `json:"categoryId"`
	Images      []string `json:"images"`
}

// ProductPatch is a partial product update; nil fields are left untouched.
type ProductPatch struct {
	Title       *string  `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
	CategoryID  *int     `json:"categoryId,omitempty"`
	Images      []string `json:"images,omitempty"`
}
