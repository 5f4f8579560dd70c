package cart

import (
	"context"
	"errors"
	"strings"
)

const (
	// DefaultStorageKey is the namespace the web frontend has always used.
	DefaultStorageKey = "eventCart"
)

var (
	// ErrNotFound is returned by Storage.Load when nothing is stored under the key.
	ErrNotFound = errors.New("cart snapshot not found")
	// ErrStorageUnavailable tags storage failures in logs. Ledger operations never return it.
	ErrStorageUnavailable = errors.New("cart storage unavailable")
)

// Storage is the persistence port of the ledger. Save replaces the whole
// value under key; implementations must never expose a partial write.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// ProfileKey scopes the base storage key to a single browser profile.
func ProfileKey(base, profileID string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultStorageKey
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return base
	}
	return base + ":" + profileID
}
