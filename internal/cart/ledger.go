package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Ledger holds a profile's in-progress ticket selection. Every mutation
// persists the full item list and then notifies listeners synchronously.
// Storage failures are logged and never returned.
type Ledger struct {
	mu        sync.Mutex
	key       string
	storage   Storage
	items     []LineItem
	listeners []listenerEntry
	nextID    ListenerID

	taxRate decimal.Decimal
	promos  PromoValidator
	now     func() time.Time
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

type Option func(*Ledger)

func WithStorageKey(key string) Option {
	return func(l *Ledger) {
		if key != "" {
			l.key = key
		}
	}
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(l *Ledger) { l.taxRate = rate }
}

func WithPromoValidator(v PromoValidator) Option {
	return func(l *Ledger) {
		if v != nil {
			l.promos = v
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(l *Ledger) {
		if logg != nil {
			l.logg = logg
		}
	}
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// NewLedger restores the ledger stored under the configured key. A missing or
// unreadable snapshot yields an empty ledger.
func NewLedger(ctx context.Context, storage Storage, opts ...Option) *Ledger {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	l := &Ledger{
		key:     DefaultStorageKey,
		storage: storage,
		taxRate: DefaultTaxRate,
		promos:  StaticPromoValidator(),
		now:     time.Now,
		logg:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.items = l.load(ctx)
	return l
}

// Key returns the storage key the ledger persists under.
func (l *Ledger) Key() string {
	return l.key
}

// AddItem inserts item or, when its ticket is already present, increases the
// existing quantity. A quantity of zero or less counts as omitted and adds one.
func (l *Ledger) AddItem(ctx context.Context, item LineItem) bool {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	l.mu.Lock()
	if pos := l.indexOf(item.TicketID); pos >= 0 {
		l.items[pos].Quantity += item.Quantity
	} else {
		l.items = append(l.items, item)
	}
	summary, listeners := l.commitLocked(ctx, "add")
	l.mu.Unlock()

	notify(listeners, summary)
	return true
}

// RemoveItem deletes the entry for ticketID. An absent ticket leaves the
// items untouched but still persists and notifies.
func (l *Ledger) RemoveItem(ctx context.Context, ticketID string) {
	l.mu.Lock()
	l.removeLocked(ticketID)
	summary, listeners := l.commitLocked(ctx, "remove")
	l.mu.Unlock()

	notify(listeners, summary)
}

// UpdateQuantity sets the quantity of an existing entry; zero or less removes
// it. Unknown tickets are ignored without persisting or notifying.
func (l *Ledger) UpdateQuantity(ctx context.Context, ticketID string, quantity int) {
	l.mu.Lock()
	pos := l.indexOf(ticketID)
	if pos < 0 {
		l.mu.Unlock()
		return
	}

	op := "update"
	if quantity <= 0 {
		l.removeLocked(ticketID)
		op = "remove"
	} else {
		l.items[pos].Quantity = quantity
	}
	summary, listeners := l.commitLocked(ctx, op)
	l.mu.Unlock()

	notify(listeners, summary)
}

// Clear empties the ledger.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	l.items = l.items[:0]
	summary, listeners := l.commitLocked(ctx, "clear")
	l.mu.Unlock()

	notify(listeners, summary)
}

// Items returns a copy of the line items in insertion order.
func (l *Ledger) Items() []LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneItems(l.items)
}

// QuantityOf returns the quantity held for ticketID, or 0 when absent.
func (l *Ledger) QuantityOf(ticketID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos := l.indexOf(ticketID); pos >= 0 {
		return l.items[pos].Quantity
	}
	return 0
}

func (l *Ledger) ItemCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return itemCountOf(l.items)
}

func (l *Ledger) Subtotal() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return subtotalOf(l.items)
}

func (l *Ledger) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items) == 0
}

// TaxRate returns the default rate used by Summary.
func (l *Ledger) TaxRate() decimal.Decimal {
	return l.taxRate
}

// CalculateTotal prices the ledger with an explicit tax rate and discount.
// Total may go negative when discount exceeds subtotal plus tax.
func (l *Ledger) CalculateTotal(taxRate decimal.Decimal, discount int64) Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return computeTotals(l.items, taxRate, discount)
}

// CalculateDefaultTotal uses the ledger's tax rate and no discount.
func (l *Ledger) CalculateDefaultTotal() Totals {
	return l.CalculateTotal(l.taxRate, 0)
}

func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summaryLocked()
}

func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		ItemCount:   itemCountOf(l.items),
		UniqueItems: len(l.items),
		Subtotal:    subtotalOf(l.items),
		IsEmpty:     len(l.items) == 0,
	}
}

func (l *Ledger) summaryLocked() Summary {
	return Summary{
		Items:  cloneItems(l.items),
		Totals: computeTotals(l.items, l.taxRate, 0),
	}
}

func (l *Ledger) indexOf(ticketID string) int {
	for i := range l.items {
		if l.items[i].TicketID == ticketID {
			return i
		}
	}
	return -1
}

func (l *Ledger) removeLocked(ticketID string) {
	kept := l.items[:0]
	for _, item := range l.items {
		if item.TicketID != ticketID {
			kept = append(kept, item)
		}
	}
	l.items = kept
}

// commitLocked persists the items and snapshots what listeners need, so they
// can be called after the lock is released.
func (l *Ledger) commitLocked(ctx context.Context, op string) (Summary, []listenerEntry) {
	l.persistLocked(ctx)
	l.metrics.IncMutation(op)
	listeners := make([]listenerEntry, len(l.listeners))
	copy(listeners, l.listeners)
	return l.summaryLocked(), listeners
}

func (l *Ledger) persistLocked(ctx context.Context) {
	data, err := json.Marshal(cloneItems(l.items))
	if err != nil {
		l.logStorageFailure(ctx, "save", err)
		return
	}
	if err := l.storage.Save(ctx, l.key, data); err != nil {
		l.logStorageFailure(ctx, "save", err)
	}
}

func (l *Ledger) load(ctx context.Context) []LineItem {
	data, err := l.storage.Load(ctx, l.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logStorageFailure(ctx, "load", err)
		}
		return []LineItem{}
	}
	if len(data) == 0 {
		return []LineItem{}
	}

	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		l.logStorageFailure(ctx, "load", fmt.Errorf("decode snapshot: %w", err))
		return []LineItem{}
	}
	return mergeDuplicates(items)
}

func (l *Ledger) logStorageFailure(ctx context.Context, op string, err error) {
	l.metrics.IncStorageFailure(op)
	ctx = l.logg.WithFields(ctx, map[string]any{
		"storage_key": l.key,
		"storage_op":  op,
	})
	l.logg.Error(ctx, "cart.storage_failed", fmt.Errorf("%w: %w", ErrStorageUnavailable, err))
}
