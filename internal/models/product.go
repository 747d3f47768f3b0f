package models

// Product is owned by the product-catalog collaborator; the exchange core
// reads it for ownership and eligibility checks only.
type Product struct {
	ID         int64  `json:"id"`
	OwnerID    int64  `json:"ownerId"`
	Title      string `json:"title"`
	IsForTrade bool   `json:"isForTrade"`
	IsForSale  bool   `json:"isForSale"`
}

// Eligible reports whether the product may be offered in a trade.
// Sale listings are excluded even when trade is allowed.
func (p Product) Eligible() bool {
	return p.IsForTrade && !p.IsForSale
}
