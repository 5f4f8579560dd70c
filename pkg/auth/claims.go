package auth

import "github.com/golang-jwt/jwt/v5"

// BuyerClaims mirrors the token the ticketing backend issues at login. The
// subject carries the username.
type BuyerClaims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Username returns the subject claim.
func (c *BuyerClaims) Username() string {
	return c.Subject
}
