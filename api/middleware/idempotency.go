package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/ticketcart/api/responses"
	"github.com/angelmondragon/ticketcart/api/validators"
	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	pkgredis "github.com/angelmondragon/ticketcart/pkg/redis"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	idempotencyReplayed   = "Idempotent-Replayed"
	defaultIdempotencyTTL = 7 * 24 * time.Hour
	// pendingTTL bounds how long a crashed submit blocks its key.
	pendingTTL        = time.Minute
	maxIdempotencyKey = 128
)

type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	Body        string `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first response of a checkout submit retried with
// the same Idempotency-Key, so a double click books one order. Requests
// without the header pass through. Only successful outcomes are kept: after a
// 4xx or 5xx the key is released, so the buyer can fix the cart or wait out a
// backend outage and retry with the same key. Must run after Auth.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(id) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, validators.MaxBodyBytes+1))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), id)
			hash := hashBody(body)

			pending, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(pending), pendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				replayStored(ctx, logg, w, store, key, hash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// The order may already be booked even if the buyer went away.
			storeCtx := context.WithoutCancel(ctx)
			status := defaultStatus(rec.status)
			if status >= http.StatusBadRequest {
				if err := store.Del(storeCtx, key); err != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}
			record, _ := json.Marshal(idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				ContentType: rec.Header().Get("Content-Type"),
				RequestHash: hash,
			})
			if err := store.Set(storeCtx, key, string(record), ttl); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, hash string) {
	stored, err := store.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNil(err) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress, retry shortly"))
			return
		}
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
	case record.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress, retry shortly"))
	default:
		body, err := base64.StdEncoding.DecodeString(record.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
			return
		}
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(idempotencyReplayed, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(body)
	}
}

// idempotencyScope keeps keys from colliding across buyers and browser profiles.
func idempotencyScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{
		strconv.FormatInt(BuyerIDFromContext(ctx), 10),
		ProfileIDFromContext(ctx),
		r.Method,
		r.URL.Path,
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
