package model

// CartItem is a purchasable variant with a quantity.
type CartItem struct {
	ProductID int     `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Quantity  int     `json:"quantity"` // > 0
}

// ItemIdentity is every CartItem field except Quantity.
type ItemIdentity struct {
	ProductID int
	Title     string
	Price     float64
	Image     string
	Size      string
	Color     string
}

// Identity returns the dedup key of the item.
func (c CartItem) Identity() ItemIdentity {
	return ItemIdentity{
		ProductID: c.ProductID,
		Title:     c.Title,
		Price:     c.Price,
		Image:     c.Image,
		Size:      c.Size,
		Color:     c.Color,
	}
}

// SameAs reports whether both items describe the same variant.
func (c CartItem) SameAs(o CartItem) bool { return c.Identity() == o.Identity() }
