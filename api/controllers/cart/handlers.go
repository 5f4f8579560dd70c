package cart

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ticketcart/api/middleware"
	"github.com/angelmondragon/ticketcart/api/responses"
	"github.com/angelmondragon/ticketcart/api/validators"
	cartsvc "github.com/angelmondragon/ticketcart/internal/cart"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

// LedgerOpener restores the ledger that belongs to a cart profile.
type LedgerOpener interface {
	Open(ctx context.Context, profileID string, extra ...cartsvc.Option) *cartsvc.Ledger
}

// CartFetch returns the items and default totals of the profile's cart.
func CartFetch(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		responses.WriteSuccess(w, ledger.Summary())
	})
}

// CartStats returns the compact badge view.
func CartStats(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		responses.WriteSuccess(w, ledger.Stats())
	})
}

// CartAddItem adds a ticket or merges it into an existing line.
func CartAddItem(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.TicketID = strings.TrimSpace(payload.TicketID)
		payload.EventName = validators.SanitizeString(payload.EventName, 255)
		payload.TicketType = validators.SanitizeString(payload.TicketType, 120)

		item := payload.toLineItem()
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if held := ledger.QuantityOf(item.TicketID); held+item.Quantity > cartsvc.MaxLineQuantity {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "too many tickets of one type").
				WithDetails(map[string]any{"ticketId": item.TicketID, "held": held, "max": cartsvc.MaxLineQuantity}))
			return
		}

		ledger.AddItem(r.Context(), item)
		responses.WriteSuccess(w, ledger.Summary())
	})
}

// CartUpdateQuantity sets a line's quantity; zero or less removes the line.
func CartUpdateQuantity(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		ticketID, err := ticketIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger.UpdateQuantity(r.Context(), ticketID, *payload.Quantity)
		responses.WriteSuccess(w, ledger.Summary())
	})
}

func CartRemoveItem(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		ticketID, err := ticketIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ledger.RemoveItem(r.Context(), ticketID)
		responses.WriteSuccess(w, ledger.Summary())
	})
}

func CartClear(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		ledger.Clear(r.Context())
		responses.WriteSuccess(w, ledger.Summary())
	})
}

// CartTotals prices the cart with an optional tax_rate (0..1) and discount.
// The total is reported unclamped.
func CartTotals(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		taxRate, err := validators.ParseQueryDecimal(r, "tax_rate", ledger.TaxRate(), decimal.Zero, decimal.NewFromInt(1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount, err := validators.ParseQueryInt64(r, "discount", 0, 0, math.MaxInt64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.CalculateTotal(taxRate, discount))
	})
}

// CartValidate reports whether the cart can be submitted. An invalid cart is
// still a 200; the result carries the reason.
func CartValidate(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		responses.WriteSuccess(w, ledger.Validate())
	})
}

// CartApplyPromo prices a promo code against the cart without storing it.
func CartApplyPromo(opener LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return withLedger(opener, logg, func(w http.ResponseWriter, r *http.Request, ledger *cartsvc.Ledger) {
		var payload promoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := ledger.ApplyPromo(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	})
}

func withLedger(opener LedgerOpener, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *cartsvc.Ledger)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opener == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart storage unavailable"))
			return
		}
		ledger, err := OpenFromRequest(r, opener)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, ledger)
	}
}

// OpenFromRequest opens the ledger of the profile resolved by the Profile
// middleware.
func OpenFromRequest(r *http.Request, opener LedgerOpener) (*cartsvc.Ledger, error) {
	profileID := middleware.ProfileIDFromContext(r.Context())
	if profileID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart profile missing").
			WithDetails(map[string]any{"header": middleware.ProfileHeader})
	}
	return opener.Open(r.Context(), profileID), nil
}

func ticketIDParam(r *http.Request) (string, error) {
	ticketID := strings.TrimSpace(chi.URLParam(r, "ticketId"))
	if ticketID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	return ticketID, nil
}
