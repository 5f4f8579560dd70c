package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ticketcart/internal/cart"
	"github.com/angelmondragon/ticketcart/pkg/backend"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
	"github.com/angelmondragon/ticketcart/pkg/validate"
)

const (
	DefaultAdminFee    int64 = 15000
	DefaultPaymentPath       = "/payment.html"
)

var (
	// ErrOrderSubmissionFailed wraps every backend booking failure.
	ErrOrderSubmissionFailed = errors.New("order submission failed")

	maxTotal = decimal.NewFromInt(math.MaxInt64)
)

type orderBooker interface {
	BookOrder(ctx context.Context, token string, order backend.OrderRequest) (*backend.BookedOrder, error)
}

// Service prices a ledger for checkout and turns it into a backend order.
type Service interface {
	Quote(ctx context.Context, ledger *cart.Ledger, promoCode string) (*Quote, error)
	Submit(ctx context.Context, ledger *cart.Ledger, input SubmitInput) (*Result, error)
	PromoValidator() cart.PromoValidator
}

// Quote is the checkout price breakdown. Total is never negative.
type Quote struct {
	Subtotal  int64                  `json:"subtotal"`
	AdminFee  int64                  `json:"adminFee"`
	Discount  int64                  `json:"discount"`
	Total     int64                  `json:"total"`
	ItemCount int                    `json:"itemCount"`
	Promo     *cart.PromoApplication `json:"promo,omitempty"`
}

// SubmitInput carries the buyer identity taken from the bearer token.
type SubmitInput struct {
	BuyerID     int64
	BearerToken string
	PromoCode   string
	Customer    cart.CustomerInfo
}

type Result struct {
	OrderID    int64       `json:"orderId"`
	PaymentURL string      `json:"paymentUrl"`
	Message    string      `json:"message,omitempty"`
	Quote      Quote       `json:"quote"`
	Order      *cart.Order `json:"order"`
}

type Config struct {
	AdminFee    int64
	PaymentPath string
}

type service struct {
	promos  cart.PromoValidator
	orders  orderBooker
	cfg     Config
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// NewService builds the checkout service. promos is the authority for promo
// codes; nil falls back to each ledger's own validator.
func NewService(cfg Config, promos cart.PromoValidator, orders orderBooker, logg *logger.Logger, m *metrics.CartMetrics) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order booker required")
	}
	if cfg.AdminFee < 0 {
		return nil, fmt.Errorf("admin fee cannot be negative")
	}
	if strings.TrimSpace(cfg.PaymentPath) == "" {
		cfg.PaymentPath = DefaultPaymentPath
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		promos:  promos,
		orders:  orders,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
	}, nil
}

func (s *service) PromoValidator() cart.PromoValidator {
	return s.promos
}

// Quote prices the ledger as subtotal + admin fee - discount, floored at zero.
// Tax is not part of the checkout total. An empty promo code means no discount.
func (s *service) Quote(ctx context.Context, ledger *cart.Ledger, promoCode string) (*Quote, error) {
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}

	stats := ledger.Stats()
	quote := &Quote{
		Subtotal:  stats.Subtotal,
		AdminFee:  s.cfg.AdminFee,
		ItemCount: stats.ItemCount,
	}

	if strings.TrimSpace(promoCode) != "" {
		app, err := ledger.ApplyPromoUsing(ctx, s.promos, promoCode)
		if err != nil {
			return nil, err
		}
		quote.Promo = &app
		quote.Discount = app.DiscountAmount
	}

	total := decimal.NewFromInt(quote.Subtotal).
		Add(decimal.NewFromInt(quote.AdminFee)).
		Sub(decimal.NewFromInt(quote.Discount))
	switch {
	case total.IsNegative():
		quote.Total = 0
	case total.GreaterThan(maxTotal):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total is too large")
	default:
		quote.Total = total.IntPart()
	}
	return quote, nil
}

// Submit books the ledger as an order. The ledger is cleared only after the
// backend confirms the booking.
func (s *service) Submit(ctx context.Context, ledger *cart.Ledger, input SubmitInput) (*Result, error) {
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	if input.BuyerID <= 0 || strings.TrimSpace(input.BearerToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "please login to continue checkout")
	}
	if err := validate.Struct(input.Customer); err != nil {
		return nil, err
	}

	ctx = s.logg.WithBuyerID(ctx, strconv.FormatInt(input.BuyerID, 10))

	order, err := ledger.ConvertToOrder(input.Customer)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}
	// Items restored from storage never passed request validation.
	for _, item := range order.Items {
		if err := validate.Struct(item); err != nil {
			s.metrics.IncCheckout("invalid")
			return nil, err
		}
	}

	quote, err := s.Quote(ctx, ledger, input.PromoCode)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}

	booked, err := s.orders.BookOrder(ctx, input.BearerToken, buildOrderRequest(input.BuyerID, order, quote))
	if err != nil {
		s.metrics.IncCheckout("failed")
		s.logg.Error(ctx, "checkout.booking_failed", err)
		return nil, submissionError(err)
	}

	ledger.Clear(ctx)
	s.metrics.IncCheckout("booked")
	s.logg.Info(s.logg.WithField(ctx, "order_id", booked.OrderID), "checkout.order_booked")

	return &Result{
		OrderID:    booked.OrderID,
		PaymentURL: fmt.Sprintf("%s?orderId=%d", s.cfg.PaymentPath, booked.OrderID),
		Message:    booked.Message,
		Quote:      *quote,
		Order:      order,
	}, nil
}

func buildOrderRequest(buyerID int64, order *cart.Order, quote *Quote) backend.OrderRequest {
	items := make([]backend.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, backend.OrderItem{TicketID: item.TicketID, Quantity: item.Quantity})
	}
	req := backend.OrderRequest{
		BuyerID:        buyerID,
		TotalPrice:     quote.Total,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.Discount,
		Items:          items,
	}
	if quote.Promo != nil {
		code := quote.Promo.Code
		req.PromoCode = &code
	}
	return req
}

// submissionError keeps an auth failure as UNAUTHORIZED so the client can
// prompt for login; everything else is a dependency failure.
func submissionError(err error) error {
	code := pkgerrors.CodeDependency
	msg := "failed to create order"
	if typed := pkgerrors.As(err); typed != nil {
		if typed.Code() == pkgerrors.CodeUnauthorized {
			code = pkgerrors.CodeUnauthorized
		}
		if typed.Message() != "" {
			msg = typed.Message()
		}
	}
	return pkgerrors.Wrap(code, fmt.Errorf("%w: %w", ErrOrderSubmissionFailed, err), msg)
}
