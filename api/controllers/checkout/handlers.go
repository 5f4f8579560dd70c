package checkout

import (
	"net/http"

	cartcontrollers "github.com/angelmondragon/ticketcart/api/controllers/cart"
	"github.com/angelmondragon/ticketcart/api/middleware"
	"github.com/angelmondragon/ticketcart/api/responses"
	"github.com/angelmondragon/ticketcart/api/validators"
	"github.com/angelmondragon/ticketcart/internal/cart"
	checkoutsvc "github.com/angelmondragon/ticketcart/internal/checkout"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

type quoteRequest struct {
	PromoCode string `json:"promo_code" validate:"omitempty,max=64"`
}

type submitRequest struct {
	PromoCode string            `json:"promo_code" validate:"omitempty,max=64"`
	Customer  cart.CustomerInfo `json:"customer"`
}

// CheckoutQuote prices the profile's cart with the admin fee and an optional
// promo code.
func CheckoutQuote(svc checkoutsvc.Service, opener cartcontrollers.LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || opener == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := cartcontrollers.OpenFromRequest(r, opener)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), ledger, payload.PromoCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutSubmit books the profile's cart for the authenticated buyer.
func CheckoutSubmit(svc checkoutsvc.Service, opener cartcontrollers.LedgerOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || opener == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := cartcontrollers.OpenFromRequest(r, opener)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), ledger, checkoutsvc.SubmitInput{
			BuyerID:     middleware.BuyerIDFromContext(r.Context()),
			BearerToken: middleware.BearerTokenFromContext(r.Context()),
			PromoCode:   payload.PromoCode,
			Customer:    payload.Customer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
