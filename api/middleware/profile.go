package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/ticketcart/api/responses"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

// ProfileHeader identifies the browser profile that owns a cart.
const ProfileHeader = "X-Cart-Profile"

// Profile resolves the cart profile from ProfileHeader, minting one when the
// client has none yet. The id is always echoed so the client can keep it.
func Profile(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(ProfileHeader))
			profileID := raw
			if raw == "" {
				profileID = uuid.NewString()
			} else {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart profile").
						WithDetails(map[string]any{"header": ProfileHeader}))
					return
				}
				profileID = parsed.String()
			}

			w.Header().Set(ProfileHeader, profileID)

			ctx := WithProfileID(r.Context(), profileID)
			if logg != nil {
				ctx = logg.WithProfileID(ctx, profileID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
