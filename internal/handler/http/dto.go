package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/utafrali/bookshop/internal/domain"
)

// RawQuantity is the user's quantity input as typed. It accepts a JSON string
// or a JSON number; numbers keep their literal text so "3.9" and 3.9 parse
// the same way.
type RawQuantity string

// UnmarshalJSON implements json.Unmarshaler.
func (q *RawQuantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*q = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = RawQuantity(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("quantity must be a string or a number")
		}
		*q = RawQuantity(n.String())
		return nil
	}
}

// --- Request DTOs ---

// SetQuantityRequest is the JSON body of a quantity update.
type SetQuantityRequest struct {
	Quantity *RawQuantity `json:"quantity" validate:"required"`
}

// --- Response DTOs ---

// ItemResponse is one catalog item as rendered to the client.
type ItemResponse struct {
	Index        int    `json:"index"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	ImageURL     string `json:"image_url,omitempty"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"price_display"`
	Quantity     int    `json:"quantity"`
}

// ViewResponse is a storefront view as rendered to the client.
type ViewResponse struct {
	ID                     string         `json:"id"`
	Title                  string         `json:"title"`
	Currency               string         `json:"currency"`
	Items                  []ItemResponse `json:"items"`
	ItemCount              int            `json:"item_count"`
	StudentDiscountEnabled bool           `json:"student_discount_enabled"`
	Total                  string         `json:"total"`
	TotalDisplay           string         `json:"total_display"`
	CatalogStatus          string         `json:"catalog_status"`
	Version                int            `json:"version"`
}

func toViewResponse(v *domain.View) ViewResponse {
	items := make([]ItemResponse, len(v.Items))
	for i, item := range v.Items {
		items[i] = ItemResponse{
			Index:        i,
			ID:           item.ID,
			Title:        item.Title,
			Author:       item.Author,
			ImageURL:     item.ImageURL,
			Price:        item.Price,
			PriceDisplay: fmt.Sprintf("%s%d", domain.CurrencySymbol, item.Price),
			Quantity:     item.Quantity,
		}
	}

	return ViewResponse{
		ID:                     v.ID,
		Title:                  v.Title,
		Currency:               v.Currency,
		Items:                  items,
		ItemCount:              v.ItemCount(),
		StudentDiscountEnabled: v.StudentDiscountEnabled,
		Total:                  v.Total,
		TotalDisplay:           domain.CurrencySymbol + v.Total,
		CatalogStatus:          string(v.CatalogStatus),
		Version:                v.Version,
	}
}
