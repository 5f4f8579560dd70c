package cart

import (
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

type ValidationReason string

const (
	ReasonEmptyCart       ValidationReason = "EMPTY_CART"
	ReasonInvalidQuantity ValidationReason = "INVALID_QUANTITY"
)

// ValidationResult is returned by Validate instead of an error so callers
// decide how to surface it.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Reason   ValidationReason `json:"reason,omitempty"`
	Message  string           `json:"message,omitempty"`
	TicketID string           `json:"ticketId,omitempty"`
}

// Err converts an invalid result into a VALIDATION error wrapping the
// matching sentinel. A valid result yields nil.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	switch r.Reason {
	case ReasonEmptyCart:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrEmptyCart, r.Message)
	case ReasonInvalidQuantity:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidQuantity, r.Message).
			WithDetails(map[string]any{"ticket_id": r.TicketID})
	}
	return pkgerrors.New(pkgerrors.CodeValidation, r.Message)
}

// Validate reports whether the ledger can become an order.
func (l *Ledger) Validate() ValidationResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return validateItems(l.items)
}

func validateItems(items []LineItem) ValidationResult {
	if len(items) == 0 {
		return ValidationResult{Reason: ReasonEmptyCart, Message: "cart is empty"}
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return ValidationResult{
				Reason:   ReasonInvalidQuantity,
				Message:  fmt.Sprintf("invalid quantity for %s", item.displayName()),
				TicketID: item.TicketID,
			}
		}
	}
	return ValidationResult{Valid: true}
}

// CustomerInfo identifies the buyer on an order payload.
type CustomerInfo struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,idphone"`
}

// Order is the submission payload derived from a valid ledger.
type Order struct {
	OrderDate     time.Time  `json:"orderDate"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail"`
	CustomerPhone string     `json:"customerPhone"`
	Items         []LineItem `json:"items"`
	Totals
}

// ConvertToOrder escalates an invalid Validate result to an error; otherwise
// it snapshots the items and default totals into an Order.
func (l *Ledger) ConvertToOrder(customer CustomerInfo) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if result := validateItems(l.items); !result.Valid {
		return nil, result.Err()
	}

	return &Order{
		OrderDate:     l.now().UTC(),
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		Items:         cloneItems(l.items),
		Totals:        computeTotals(l.items, l.taxRate, 0),
	}, nil
}
