package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/shopspring/decimal"
)

// DiscountType is the promo rule kind as reported by the backend.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

var (
	// ErrPromoInvalid marks a promo code rejected by its validator.
	ErrPromoInvalid = errors.New("promo code invalid")

	hundred = decimal.NewFromInt(100)
)

// PromoRule describes how a promo code reduces the subtotal.
type PromoRule struct {
	Type        DiscountType    `json:"discountType"`
	Value       decimal.Decimal `json:"discountValue"`
	MinPurchase int64           `json:"minPurchase,omitempty"`
}

// Validate checks the rule shape: percentages within 0–100, fixed amounts non-negative.
func (r PromoRule) Validate() error {
	switch r.Type {
	case DiscountPercentage:
		if r.Value.IsNegative() || r.Value.GreaterThan(hundred) {
			return fmt.Errorf("percentage must be 0-100, got %s", r.Value)
		}
	case DiscountFixed:
		if r.Value.IsNegative() {
			return fmt.Errorf("fixed discount cannot be negative")
		}
	default:
		return fmt.Errorf("unknown discount type %q", r.Type)
	}
	return nil
}

// DiscountFor computes the discount on subtotal. The result is not capped at
// the subtotal.
func (r PromoRule) DiscountFor(subtotal int64) int64 {
	switch r.Type {
	case DiscountPercentage:
		return decimal.NewFromInt(subtotal).Mul(r.Value).Div(hundred).Round(0).IntPart()
	case DiscountFixed:
		return r.Value.Round(0).IntPart()
	}
	return 0
}

// Eligible reports whether subtotal meets the rule's minimum purchase.
func (r PromoRule) Eligible(subtotal int64) bool {
	return r.MinPurchase <= 0 || subtotal >= r.MinPurchase
}

// PromoApplication is transient: it is never persisted and the backend
// revalidates the code when the order is submitted.
type PromoApplication struct {
	Code           string    `json:"code"`
	Rule           PromoRule `json:"rule"`
	DiscountAmount int64     `json:"discountAmount"`
	Valid          bool      `json:"isValid"`
}

// PromoValidator resolves a normalized code into a rule.
type PromoValidator interface {
	ValidatePromo(ctx context.Context, code string) (*PromoRule, error)
}

type PromoValidatorFunc func(ctx context.Context, code string) (*PromoRule, error)

func (fn PromoValidatorFunc) ValidatePromo(ctx context.Context, code string) (*PromoRule, error) {
	return fn(ctx, code)
}

// StaticPromoValidator accepts every code as 10% off. It is the stand-alone
// fallback used when no backend validator is configured.
func StaticPromoValidator() PromoValidator {
	return PromoValidatorFunc(func(ctx context.Context, code string) (*PromoRule, error) {
		return &PromoRule{Type: DiscountPercentage, Value: decimal.NewFromInt(10)}, nil
	})
}

// NormalizePromoCode trims and upper-cases a user-entered code.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ApplyPromo validates code with the ledger's validator and prices it against
// the current subtotal. The ledger is not mutated.
func (l *Ledger) ApplyPromo(ctx context.Context, code string) (PromoApplication, error) {
	return l.ApplyPromoUsing(ctx, l.promos, code)
}

// ApplyPromoUsing is ApplyPromo with an explicit validator.
func (l *Ledger) ApplyPromoUsing(ctx context.Context, validator PromoValidator, code string) (PromoApplication, error) {
	code = NormalizePromoCode(code)
	if code == "" {
		return PromoApplication{}, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	if validator == nil {
		validator = l.promos
	}

	rule, err := validator.ValidatePromo(ctx, code)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeValidation, fmt.Errorf("%w: %w", ErrPromoInvalid, err), "invalid promo code")
		}
		return PromoApplication{Code: code}, err
	}
	if rule == nil {
		return PromoApplication{Code: code}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPromoInvalid, "invalid promo code")
	}
	if err := rule.Validate(); err != nil {
		return PromoApplication{Code: code}, pkgerrors.Wrap(pkgerrors.CodeValidation, fmt.Errorf("%w: %w", ErrPromoInvalid, err), "invalid promo code")
	}

	subtotal := l.Subtotal()
	if !rule.Eligible(subtotal) {
		return PromoApplication{Code: code, Rule: *rule}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPromoInvalid, "subtotal below promo minimum purchase").
			WithDetails(map[string]any{"min_purchase": rule.MinPurchase, "subtotal": subtotal})
	}

	return PromoApplication{
		Code:           code,
		Rule:           *rule,
		DiscountAmount: rule.DiscountFor(subtotal),
		Valid:          true,
	}, nil
}
