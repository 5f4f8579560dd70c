package backend

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// envelope is the response wrapper every backend endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Promo is the backend's view of an active promo code.
type Promo struct {
	Code          string              `json:"kode"`
	Description   string              `json:"deskripsi"`
	DiscountType  string              `json:"jenisDiskon"`
	DiscountValue decimal.Decimal     `json:"nilaiDiskon"`
	MinPurchase   decimal.NullDecimal `json:"minPembelian"`
}

// OrderItem is one ticket line of a booking request.
type OrderItem struct {
	TicketID string `json:"idTiket"`
	Quantity int    `json:"jumlah"`
}

// OrderRequest is the body of POST /orders/book.
type OrderRequest struct {
	BuyerID        int64       `json:"idPengguna"`
	TotalPrice     int64       `json:"totalHarga"`
	Subtotal       int64       `json:"subtotal"`
	DiscountAmount int64       `json:"discountAmount"`
	PromoCode      *string     `json:"promoCode"`
	Items          []OrderItem `json:"items"`
}

// BookedOrder is the subset of the created order the checkout flow needs.
type BookedOrder struct {
	OrderID int64  `json:"idPembelian"`
	Status  string `json:"status,omitempty"`
	Message string `json:"-"`
}
