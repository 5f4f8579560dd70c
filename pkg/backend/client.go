package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/ticketcart/pkg/config"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
)

const (
	defaultBaseURL             = "http://localhost:8081/api"
	defaultTimeout             = 10 * time.Second
	responseReadLimit    int64 = 1 << 20
	requestIDHeader            = "X-Request-Id"
	callValidatePromo          = "validate_promo"
	callBookOrder              = "book_order"
)

var (
	// ErrPromoRejected is returned when the backend does not accept a promo code.
	ErrPromoRejected = errors.New("promo code rejected")
	// ErrBookingRejected is returned when the backend refuses an order.
	ErrBookingRejected = errors.New("order booking rejected")
)

// Client calls the event-ticketing REST backend.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	metrics      *metrics.CartMetrics
	promoRetries int
	retryBackoff time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a backend client from config.
func NewClient(cfg config.BackendConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		promoRetries: max(cfg.PromoRetries, 0),
		retryBackoff: cfg.RetryBackoff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// ValidatePromo asks the backend whether code is active. Rejections wrap
// ErrPromoRejected with the backend's message; transport failures are
// dependency errors and are retried up to the configured count.
func (c *Client) ValidatePromo(ctx context.Context, code string) (*Promo, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}

	var (
		promo *Promo
		err   error
	)
	for attempt := 0; attempt <= c.promoRetries; attempt++ {
		if attempt > 0 {
			if werr := sleepCtx(ctx, c.retryBackoff*time.Duration(attempt)); werr != nil {
				return nil, err
			}
		}
		promo, err = c.validatePromoOnce(ctx, code)
		if err == nil || !pkgerrors.IsRetryable(err) {
			break
		}
	}
	return promo, err
}

func (c *Client) validatePromoOnce(ctx context.Context, code string) (*Promo, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveBackend(callValidatePromo, time.Since(start)) }()

	req, err := c.newRequest(ctx, http.MethodGet, "/promo/validate/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, err
	}

	status, env, err := c.do(req, "promo validation")
	if err != nil {
		return nil, err
	}
	if status >= http.StatusInternalServerError {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", status, env.Message), "promo validation failed")
	}
	if status >= http.StatusBadRequest || !env.Success || isNull(env.Data) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPromoRejected, rejectionMessage(env.Message, "promo code is not valid"))
	}

	var promo Promo
	if err := json.Unmarshal(env.Data, &promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode promo response")
	}
	if promo.Code == "" {
		promo.Code = code
	}
	return &promo, nil
}

// BookOrder creates the order on behalf of the token's owner.
func (c *Client) BookOrder(ctx context.Context, token string, order OrderRequest) (*BookedOrder, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token is required")
	}

	start := time.Now()
	defer func() { c.metrics.ObserveBackend(callBookOrder, time.Since(start)) }()

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order request")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/orders/book", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	status, env, err := c.do(req, "order booking")
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrBookingRejected, rejectionMessage(env.Message, "session expired, please login again"))
	case status >= http.StatusBadRequest || !env.Success:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: status %d", ErrBookingRejected, status), rejectionMessage(env.Message, "failed to create order"))
	}

	var booked BookedOrder
	if err := json.Unmarshal(env.Data, &booked); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order response")
	}
	if booked.OrderID == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ErrBookingRejected, "order response is missing idPembelian")
	}
	booked.Message = env.Message
	return &booked, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.RequestIDFrom(ctx); id != "" {
		req.Header.Set(requestIDHeader, id)
	}
	return req, nil
}

// do executes req and decodes the envelope. A body that is not an envelope is
// tolerated for error statuses so the status still drives the outcome.
func (c *Client) do(req *http.Request, what string) (int, envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, envelope{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+what+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return resp.StatusCode, envelope{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read "+what+" response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			env.Message = strings.TrimSpace(string(raw))
			return resp.StatusCode, env, nil
		}
		return resp.StatusCode, envelope{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+what+" response")
	}
	return resp.StatusCode, env, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func rejectionMessage(message, fallback string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return fallback
	}
	return message
}
