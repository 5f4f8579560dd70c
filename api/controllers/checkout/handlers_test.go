package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ticketcart/api/middleware"
	"github.com/angelmondragon/ticketcart/internal/cart"
	checkoutsvc "github.com/angelmondragon/ticketcart/internal/checkout"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
)

type stubCheckoutService struct {
	quote      *checkoutsvc.Quote
	result     *checkoutsvc.Result
	err        error
	promoCode  string
	input      checkoutsvc.SubmitInput
	ledgerSeen *cart.Ledger
}

func (s *stubCheckoutService) Quote(ctx context.Context, ledger *cart.Ledger, promoCode string) (*checkoutsvc.Quote, error) {
	s.promoCode = promoCode
	s.ledgerSeen = ledger
	return s.quote, s.err
}

func (s *stubCheckoutService) Submit(ctx context.Context, ledger *cart.Ledger, input checkoutsvc.SubmitInput) (*checkoutsvc.Result, error) {
	s.input = input
	s.ledgerSeen = ledger
	return s.result, s.err
}

func (s *stubCheckoutService) PromoValidator() cart.PromoValidator {
	return nil
}

func newRequest(body string, profile string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithProfileID(req.Context(), profile))
}

func TestCheckoutQuotePassesPromoCode(t *testing.T) {
	svc := &stubCheckoutService{quote: &checkoutsvc.Quote{Subtotal: 300000, AdminFee: 15000, Total: 315000, ItemCount: 3}}
	opener := cart.NewOpener(cart.NewMemoryStorage(), "eventCart")
	handler := CheckoutQuote(svc, opener, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(`{"promo_code":"early"}`, uuid.NewString()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	assert.Equal(t, "early", svc.promoCode)
	require.NotNil(t, svc.ledgerSeen)

	var envelope struct {
		Data checkoutsvc.Quote `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, int64(315000), envelope.Data.Total)
}

func TestCheckoutQuoteSurfacesPromoRejection(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.Wrap(pkgerrors.CodeValidation, checkoutsvc.ErrPromoInvalid, "Promo code tidak valid")}
	handler := CheckoutQuote(svc, cart.NewOpener(nil, ""), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(`{"promo_code":"nope"}`, uuid.NewString()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	assert.Contains(t, resp.Body.String(), "Promo code tidak valid")
}

func TestCheckoutSubmitForwardsBuyer(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.Result{OrderID: 77, PaymentURL: "/payment.html?orderId=77"}}
	handler := CheckoutSubmit(svc, cart.NewOpener(nil, ""), nil)

	req := newRequest(`{"promo_code":"EARLY","customer":{"name":"Sari","email":"sari@example.com","phone":"081234567890"}}`, uuid.NewString())
	req = req.WithContext(middleware.WithBuyer(req.Context(), 42, "USER", "tok"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	assert.Equal(t, int64(42), svc.input.BuyerID)
	assert.Equal(t, "tok", svc.input.BearerToken)
	assert.Equal(t, "EARLY", svc.input.PromoCode)
	assert.Equal(t, "sari@example.com", svc.input.Customer.Email)
	assert.Contains(t, resp.Body.String(), `"paymentUrl":"/payment.html?orderId=77"`)
}

func TestCheckoutSubmitMapsDependencyFailure(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, checkoutsvc.ErrOrderSubmissionFailed, "failed to create order")}
	handler := CheckoutSubmit(svc, cart.NewOpener(nil, ""), nil)

	req := newRequest(`{"customer":{"name":"Sari","email":"sari@example.com"}}`, uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
}

func TestCheckoutSubmitRejectsMalformedBody(t *testing.T) {
	handler := CheckoutSubmit(&stubCheckoutService{}, cart.NewOpener(nil, ""), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(`{"customer":`, uuid.NewString()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
