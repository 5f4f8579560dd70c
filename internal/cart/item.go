package cart

import "github.com/shopspring/decimal"

const (
	// MaxUnitPrice bounds a ticket price in whole currency units.
	MaxUnitPrice int64 = 1_000_000_000
	// MaxLineQuantity bounds the tickets of one type a buyer may hold.
	MaxLineQuantity = 100
)

// LineItem is one ticket type selected for purchase. The JSON field names are
// the persisted layout shared with the web frontend.
type LineItem struct {
	TicketID   string `json:"ticketId" validate:"required,max=64"`
	EventID    string `json:"eventId" validate:"max=64"`
	EventName  string `json:"eventName" validate:"max=255"`
	TicketType string `json:"ticketType" validate:"max=120"`
	Price      int64  `json:"price" validate:"gte=0,lte=1000000000"`
	Quantity   int    `json:"quantity" validate:"gte=0,lte=100"`
	Image      string `json:"image" validate:"max=2048"`
}

// LineTotal returns price × quantity, saturated at the int64 range.
func (i LineItem) LineTotal() int64 {
	return clampInt64(i.lineTotal())
}

func (i LineItem) lineTotal() decimal.Decimal {
	return decimal.NewFromInt(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i LineItem) displayName() string {
	if i.EventName != "" {
		return i.EventName
	}
	return i.TicketID
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// mergeDuplicates folds repeated ticket ids into the first occurrence so a
// hand-edited or legacy snapshot still honours one entry per ticket.
func mergeDuplicates(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if pos, ok := index[item.TicketID]; ok {
			out[pos].Quantity += item.Quantity
			continue
		}
		index[item.TicketID] = len(out)
		out = append(out, item)
	}
	return out
}
