package cart

import "context"

// Opener restores per-profile ledgers from one shared backend.
type Opener struct {
	storage Storage
	baseKey string
	opts    []Option
}

func NewOpener(storage Storage, baseKey string, opts ...Option) *Opener {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if baseKey == "" {
		baseKey = DefaultStorageKey
	}
	return &Opener{storage: storage, baseKey: baseKey, opts: opts}
}

// Open loads the ledger stored under ProfileKey(baseKey, profileID).
func (o *Opener) Open(ctx context.Context, profileID string, extra ...Option) *Ledger {
	opts := make([]Option, 0, len(o.opts)+len(extra)+1)
	opts = append(opts, o.opts...)
	opts = append(opts, extra...)
	opts = append(opts, WithStorageKey(ProfileKey(o.baseKey, profileID)))
	return NewLedger(ctx, o.storage, opts...)
}

// Storage exposes the backend for health checks.
func (o *Opener) Storage() Storage {
	return o.storage
}
