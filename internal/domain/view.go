package domain

import (
	"math"
	"time"
)

// Storefront presentation constants.
const (
	StorefrontTitle = "Kitap Mağazası"
	Currency        = "TRY"
	CurrencySymbol  = "₺"
)

// CatalogStatus records how the one catalog load of a view ended.
type CatalogStatus string

const (
	CatalogLoaded CatalogStatus = "loaded"
	CatalogFailed CatalogStatus = "failed"
)

// CatalogItem is one purchasable book.
type CatalogItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ImageURL string `json:"image_url,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// View is the cart state of one mounted storefront: the catalog items, the
// student discount flag, and the total as last displayed.
type View struct {
	ID                     string        `json:"id"`
	Title                  string        `json:"title"`
	Currency               string        `json:"currency"`
	Items                  []CatalogItem `json:"items"`
	StudentDiscountEnabled bool          `json:"student_discount_enabled"`
	Total                  string        `json:"total"`
	CatalogStatus          CatalogStatus `json:"catalog_status"`
	Version                int           `json:"version"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
	ExpiresAt              time.Time     `json:"expires_at"`
}

// HasItem reports whether index addresses an item of the view.
func (v *View) HasItem(index int) bool {
	return index >= 0 && index < len(v.Items)
}

// SetQuantity replaces the quantity of the item at index with the value parsed
// from raw. The displayed total is left untouched.
func (v *View) SetQuantity(index int, raw string) int {
	qty := ParseQuantity(raw)
	v.Items[index].Quantity = qty
	return qty
}

// ConfirmPurchase commits the current quantity of the item at index and
// refreshes the displayed total. The quantity itself is not changed; it is
// returned for the caller's bookkeeping.
func (v *View) ConfirmPurchase(index int) int {
	qty := v.Items[index].Quantity
	v.Recompute(v.StudentDiscountEnabled)
	return qty
}

// ToggleDiscount flips the student discount and refreshes the displayed total
// with the new flag. It returns the new flag value.
func (v *View) ToggleDiscount() bool {
	enabled := !v.StudentDiscountEnabled
	v.StudentDiscountEnabled = enabled
	v.Recompute(enabled)
	return enabled
}

// Recompute sets the displayed total from the current items and the given
// discount flag.
func (v *View) Recompute(discountEnabled bool) {
	v.Total = FormatTotal(ComputeTotal(v.Items, discountEnabled))
}

// ItemCount returns the summed quantity over all items, saturating at
// math.MaxInt. Quantities are never negative.
func (v *View) ItemCount() int {
	var count int
	for _, item := range v.Items {
		if item.Quantity > math.MaxInt-count {
			return math.MaxInt
		}
		count += item.Quantity
	}
	return count
}

// Clone returns a deep copy of the view.
func (v *View) Clone() *View {
	cp := *v
	cp.Items = make([]CatalogItem, len(v.Items))
	copy(cp.Items, v.Items)
	return &cp
}
