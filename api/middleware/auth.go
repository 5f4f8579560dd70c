package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/ticketcart/api/responses"
	pkgAuth "github.com/angelmondragon/ticketcart/pkg/auth"
	"github.com/angelmondragon/ticketcart/pkg/config"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

// Auth validates the backend-issued bearer token and seeds the request
// context with the buyer.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "please login to continue checkout"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseBuyerToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session expired, please login again"))
				return
			}

			ctx := WithBuyer(r.Context(), claims.UserID, claims.Role, token)
			if logg != nil {
				ctx = logg.WithBuyerID(ctx, strconv.FormatInt(claims.UserID, 10))
				ctx = logg.WithField(ctx, "actor_role", claims.Role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
