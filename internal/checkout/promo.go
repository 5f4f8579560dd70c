package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ticketcart/internal/cart"
	"github.com/angelmondragon/ticketcart/pkg/backend"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
)

// ErrPromoInvalid is the cart sentinel; checkout callers match on it without
// importing cart.
var ErrPromoInvalid = cart.ErrPromoInvalid

type promoClient interface {
	ValidatePromo(ctx context.Context, code string) (*backend.Promo, error)
}

// BackendPromoValidator turns backend promo lookups into ledger promo rules.
func BackendPromoValidator(client promoClient) cart.PromoValidator {
	return cart.PromoValidatorFunc(func(ctx context.Context, code string) (*cart.PromoRule, error) {
		promo, err := client.ValidatePromo(ctx, code)
		if err != nil {
			if errors.Is(err, backend.ErrPromoRejected) {
				msg := "invalid promo code"
				if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
					msg = typed.Message()
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, fmt.Errorf("%w: %w", cart.ErrPromoInvalid, err), msg).
					WithDetails(map[string]any{"code": code})
			}
			return nil, err
		}
		return ruleFromPromo(promo), nil
	})
}

func ruleFromPromo(promo *backend.Promo) *cart.PromoRule {
	rule := &cart.PromoRule{
		Type:  cart.DiscountType(strings.ToUpper(strings.TrimSpace(promo.DiscountType))),
		Value: promo.DiscountValue,
	}
	if promo.MinPurchase.Valid {
		rule.MinPurchase = promo.MinPurchase.Decimal.Ceil().IntPart()
	}
	return rule
}
