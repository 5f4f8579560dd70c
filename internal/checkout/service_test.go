package checkout

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/angelmondragon/ticketcart/internal/cart"
	"github.com/angelmondragon/ticketcart/pkg/backend"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPromos struct {
	promos map[string]*backend.Promo
	err    error
}

func (s stubPromos) ValidatePromo(ctx context.Context, code string) (*backend.Promo, error) {
	if s.err != nil {
		return nil, s.err
	}
	promo, ok := s.promos[code]
	if !ok {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, backend.ErrPromoRejected, "Promo code tidak valid")
	}
	return promo, nil
}

type stubBooker struct {
	got    *backend.OrderRequest
	token  string
	result *backend.BookedOrder
	err    error
}

func (s *stubBooker) BookOrder(ctx context.Context, token string, order backend.OrderRequest) (*backend.BookedOrder, error) {
	s.got = &order
	s.token = token
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testPromos() stubPromos {
	return stubPromos{promos: map[string]*backend.Promo{
		"EARLY": {Code: "EARLY", DiscountType: "percentage", DiscountValue: decimal.NewFromInt(10)},
		"FLAT":  {Code: "FLAT", DiscountType: "FIXED", DiscountValue: decimal.NewFromInt(500000)},
		"VIP": {
			Code:          "VIP",
			DiscountType:  "FIXED",
			DiscountValue: decimal.NewFromInt(50000),
			MinPurchase:   decimal.NewNullDecimal(decimal.NewFromInt(1000000)),
		},
	}}
}

func newLedger(t *testing.T) *cart.Ledger {
	t.Helper()
	ctx := context.Background()
	l := cart.NewLedger(ctx, cart.NewMemoryStorage())
	l.AddItem(ctx, cart.LineItem{TicketID: "12", EventName: "Java Jazz", Price: 100000, Quantity: 3})
	return l
}

func newService(t *testing.T, booker *stubBooker, m *metrics.CartMetrics) Service {
	t.Helper()
	svc, err := NewService(Config{AdminFee: DefaultAdminFee}, BackendPromoValidator(testPromos()), booker, nil, m)
	require.NoError(t, err)
	return svc
}

var buyer = cart.CustomerInfo{Name: "Sari", Email: "sari@example.com", Phone: "081234567890"}

func TestQuote(t *testing.T) {
	svc := newService(t, &stubBooker{}, nil)
	ctx := context.Background()
	l := newLedger(t)

	quote, err := svc.Quote(ctx, l, "")
	require.NoError(t, err)
	assert.Equal(t, Quote{Subtotal: 300000, AdminFee: 15000, Total: 315000, ItemCount: 3}, *quote)

	quote, err = svc.Quote(ctx, l, " early ")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), quote.Discount)
	assert.Equal(t, int64(285000), quote.Total)
	require.NotNil(t, quote.Promo)
	assert.Equal(t, "EARLY", quote.Promo.Code)
	assert.Equal(t, cart.DiscountPercentage, quote.Promo.Rule.Type)

	quote, err = svc.Quote(ctx, l, "FLAT")
	require.NoError(t, err)
	assert.Equal(t, int64(500000), quote.Discount)
	assert.Equal(t, int64(0), quote.Total, "total is clamped at zero")
}

func TestQuotePromoFailures(t *testing.T) {
	svc := newService(t, &stubBooker{}, nil)
	ctx := context.Background()
	l := newLedger(t)

	_, err := svc.Quote(ctx, l, "NOPE")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPromoInvalid)
	assert.ErrorIs(t, err, backend.ErrPromoRejected)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, "Promo code tidak valid", pkgerrors.As(err).Message())

	_, err = svc.Quote(ctx, l, "VIP")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPromoInvalid)

	down, err := NewService(Config{}, BackendPromoValidator(stubPromos{err: pkgerrors.New(pkgerrors.CodeDependency, "backend down")}), &stubBooker{}, nil, nil)
	require.NoError(t, err)
	_, err = down.Quote(ctx, l, "EARLY")
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestSubmitBooksAndClears(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCartMetrics(reg)
	booker := &stubBooker{result: &backend.BookedOrder{OrderID: 981, Message: "Booking berhasil!"}}
	svc := newService(t, booker, m)
	l := newLedger(t)

	result, err := svc.Submit(context.Background(), l, SubmitInput{
		BuyerID:     7,
		BearerToken: "tok",
		PromoCode:   "early",
		Customer:    buyer,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(981), result.OrderID)
	assert.Equal(t, "/payment.html?orderId=981", result.PaymentURL)
	assert.Equal(t, int64(285000), result.Quote.Total)
	assert.Equal(t, "Sari", result.Order.CustomerName)
	assert.True(t, l.IsEmpty())

	require.NotNil(t, booker.got)
	assert.Equal(t, "tok", booker.token)
	assert.Equal(t, int64(7), booker.got.BuyerID)
	assert.Equal(t, int64(285000), booker.got.TotalPrice)
	assert.Equal(t, int64(300000), booker.got.Subtotal)
	assert.Equal(t, int64(30000), booker.got.DiscountAmount)
	require.NotNil(t, booker.got.PromoCode)
	assert.Equal(t, "EARLY", *booker.got.PromoCode)
	assert.Equal(t, []backend.OrderItem{{TicketID: "12", Quantity: 3}}, booker.got.Items)

	expected := `
# HELP checkout_orders_total Checkout submissions by outcome.
# TYPE checkout_orders_total counter
checkout_orders_total{result="booked"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "checkout_orders_total"))
}

func TestSubmitWithoutPromoSendsNullCode(t *testing.T) {
	booker := &stubBooker{result: &backend.BookedOrder{OrderID: 5}}
	svc := newService(t, booker, nil)

	_, err := svc.Submit(context.Background(), newLedger(t), SubmitInput{BuyerID: 7, BearerToken: "tok", Customer: buyer})
	require.NoError(t, err)
	assert.Nil(t, booker.got.PromoCode)
	assert.Equal(t, int64(315000), booker.got.TotalPrice)
}

func TestSubmitFailureKeepsLedger(t *testing.T) {
	booker := &stubBooker{err: pkgerrors.Wrap(pkgerrors.CodeDependency, backend.ErrBookingRejected, "Tiket habis")}
	svc := newService(t, booker, nil)
	l := newLedger(t)

	_, err := svc.Submit(context.Background(), l, SubmitInput{BuyerID: 7, BearerToken: "tok", Customer: buyer})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderSubmissionFailed)
	assert.ErrorIs(t, err, backend.ErrBookingRejected)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.Equal(t, "Tiket habis", pkgerrors.As(err).Message())
	assert.Equal(t, 3, l.ItemCount())

	booker.err = pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	_, err = svc.Submit(context.Background(), l, SubmitInput{BuyerID: 7, BearerToken: "tok", Customer: buyer})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, ErrOrderSubmissionFailed)

	booker.err = errors.New("connection reset")
	_, err = svc.Submit(context.Background(), l, SubmitInput{BuyerID: 7, BearerToken: "tok", Customer: buyer})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.Equal(t, "failed to create order", pkgerrors.As(err).Message())
	assert.Equal(t, 3, l.ItemCount())
}

func TestSubmitValidation(t *testing.T) {
	booker := &stubBooker{result: &backend.BookedOrder{OrderID: 1}}
	svc := newService(t, booker, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, newLedger(t), SubmitInput{Customer: buyer})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = svc.Submit(ctx, newLedger(t), SubmitInput{
		BuyerID:     7,
		BearerToken: "tok",
		Customer:    cart.CustomerInfo{Name: "Sari", Email: "not-an-email", Phone: "555"},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "phone")

	empty := cart.NewLedger(ctx, nil)
	_, err = svc.Submit(ctx, empty, SubmitInput{BuyerID: 7, BearerToken: "tok", Customer: buyer})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
	assert.Nil(t, booker.got, "invalid carts never reach the backend")
}

func TestSubmitRejectsOutOfRangeStoredItems(t *testing.T) {
	booker := &stubBooker{result: &backend.BookedOrder{OrderID: 1}}
	svc := newService(t, booker, nil)
	ctx := context.Background()

	// A ledger fed directly, bypassing request validation.
	l := cart.NewLedger(ctx, cart.NewMemoryStorage())
	l.AddItem(ctx, cart.LineItem{TicketID: "12", Price: math.MaxInt64, Quantity: 2})

	_, err := svc.Submit(ctx, l, SubmitInput{BuyerID: 7, BearerToken: "tok", Customer: buyer})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Nil(t, booker.got)
	assert.False(t, l.IsEmpty())
}

func TestQuoteRejectsTotalBeyondRange(t *testing.T) {
	svc := newService(t, &stubBooker{}, nil)
	ctx := context.Background()

	l := cart.NewLedger(ctx, cart.NewMemoryStorage())
	l.AddItem(ctx, cart.LineItem{TicketID: "12", Price: math.MaxInt64, Quantity: 1})

	_, err := svc.Quote(ctx, l, "")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestNewServiceRequiresBooker(t *testing.T) {
	_, err := NewService(Config{}, nil, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewService(Config{AdminFee: -1}, nil, &stubBooker{}, nil, nil)
	assert.Error(t, err)

	svc, err := NewService(Config{}, nil, &stubBooker{}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, svc.PromoValidator())
}
