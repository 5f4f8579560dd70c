package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

var errSecretRequired = errors.New("jwt secret is required")

func signingMethod(cfg config.JWTConfig) (*jwt.SigningMethodHMAC, error) {
	switch strings.ToUpper(strings.TrimSpace(cfg.Algorithm)) {
	case "", "HS512":
		return jwt.SigningMethodHS512, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS256":
		return jwt.SigningMethodHS256, nil
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
}

// MintBuyerToken signs a token shaped like the backend's. Used by tests and
// local tooling; production tokens come from the backend.
func MintBuyerToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, username string, userID int64, role string) (string, error) {
	if cfg.Secret == "" {
		return "", errSecretRequired
	}
	method, err := signingMethod(cfg)
	if err != nil {
		return "", err
	}

	claims := BuyerClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseBuyerToken validates the JWT string and returns typed claims.
func ParseBuyerToken(cfg config.JWTConfig, tokenString string) (*BuyerClaims, error) {
	if cfg.Secret == "" {
		return nil, errSecretRequired
	}
	method, err := signingMethod(cfg)
	if err != nil {
		return nil, err
	}

	claims := &BuyerClaims{}
	_, err = jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != method {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("token is missing userId")
	}
	return claims, nil
}
