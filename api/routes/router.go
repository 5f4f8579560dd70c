package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/ticketcart/api/controllers"
	cartcontrollers "github.com/angelmondragon/ticketcart/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/ticketcart/api/controllers/checkout"
	"github.com/angelmondragon/ticketcart/api/middleware"
	checkoutsvc "github.com/angelmondragon/ticketcart/internal/checkout"
	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	pkgredis "github.com/angelmondragon/ticketcart/pkg/redis"
)

// Deps groups what the router hands to controllers.
type Deps struct {
	Opener    cartcontrollers.LedgerOpener
	Checkout  checkoutsvc.Service
	Gatherer  prometheus.Gatherer
	Readiness map[string]controllers.Pinger
	// Idempotency backs replay of checkout submits; nil disables it.
	Idempotency pkgredis.IdempotencyStore
	// RateLimiter counts promo lookups; nil disables throttling.
	RateLimiter pkgredis.RateLimitStore
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	promoLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"promo",
		cfg.RateLimit.PromoWindow,
		cfg.RateLimit.PromoIPLimit,
		cfg.RateLimit.PromoProfileLimit,
	), deps.RateLimiter, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Profile(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Opener, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Opener, logg))
			r.Get("/stats", cartcontrollers.CartStats(deps.Opener, logg))
			r.Get("/totals", cartcontrollers.CartTotals(deps.Opener, logg))
			r.Get("/validate", cartcontrollers.CartValidate(deps.Opener, logg))
			r.With(promoLimit).Post("/promo", cartcontrollers.CartApplyPromo(deps.Opener, logg))
			r.Post("/items", cartcontrollers.CartAddItem(deps.Opener, logg))
			r.Patch("/items/{ticketId}", cartcontrollers.CartUpdateQuantity(deps.Opener, logg))
			r.Delete("/items/{ticketId}", cartcontrollers.CartRemoveItem(deps.Opener, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.With(promoLimit).Post("/quote", checkoutcontrollers.CheckoutQuote(deps.Checkout, deps.Opener, logg))
			r.With(
				middleware.Auth(cfg.JWT, logg),
				middleware.Idempotency(deps.Idempotency, cfg.Checkout.IdempotencyTTL, logg),
			).Post("/", checkoutcontrollers.CheckoutSubmit(deps.Checkout, deps.Opener, logg))
		})
	})

	return r
}
