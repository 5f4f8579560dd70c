package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/ticketcart/api/responses"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	pkgredis "github.com/angelmondragon/ticketcart/pkg/redis"
)

// RateLimitPolicy is a fixed window with separate per-IP and per-profile limits.
type RateLimitPolicy struct {
	name         string
	window       time.Duration
	ipLimit      int
	profileLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, profileLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:         strings.ToLower(strings.TrimSpace(name)),
		window:       window,
		ipLimit:      ipLimit,
		profileLimit: profileLimit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.profileLimit > 0)
}

func (p RateLimitPolicy) scope(kind, value string) string {
	name := p.name
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s:%s:%s", name, kind, value)
}

// RateLimit counts requests per client IP and per cart profile. It must run
// after Profile. A nil store or disabled policy passes everything through.
func RateLimit(policy RateLimitPolicy, store pkgredis.RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks := []struct {
				kind  string
				value string
				limit int
			}{
				{"ip", clientIP(r), policy.ipLimit},
				{"profile", ProfileIDFromContext(ctx), policy.profileLimit},
			}

			for _, c := range checks {
				if c.limit <= 0 || c.value == "" {
					continue
				}
				key := store.RateLimitKey(policy.scope(c.kind, c.value))
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(c.limit) {
					rejectRateLimited(ctx, logg, w, policy, c.kind, count, c.limit)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, kind string, count int64, limit int) {
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"scope":          kind,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(ctx, "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many promo attempts, try again later"))
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
