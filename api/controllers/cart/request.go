package cart

import cartsvc "github.com/angelmondragon/ticketcart/internal/cart"

type addItemRequest struct {
	TicketID   string `json:"ticketId" validate:"required,max=64"`
	EventID    string `json:"eventId" validate:"omitempty,max=64"`
	EventName  string `json:"eventName" validate:"omitempty,max=255"`
	TicketType string `json:"ticketType" validate:"omitempty,max=120"`
	Price      int64  `json:"price" validate:"gte=0,lte=1000000000"`
	Quantity   int    `json:"quantity" validate:"gte=0,lte=100"`
	Image      string `json:"image" validate:"omitempty,max=2048"`
}

func (r addItemRequest) toLineItem() cartsvc.LineItem {
	return cartsvc.LineItem{
		TicketID:   r.TicketID,
		EventID:    r.EventID,
		EventName:  r.EventName,
		TicketType: r.TicketType,
		Price:      r.Price,
		Quantity:   r.Quantity,
		Image:      r.Image,
	}
}

// Negative and zero quantities are accepted and remove the line.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=100"`
}

type promoRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
