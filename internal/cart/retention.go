package cart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/angelmondragon/ticketcart/pkg/db/models"
)

// Pruner is implemented by backends without native expiry. Redis snapshots
// carry a TTL instead.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneBefore deletes snapshots last written before cutoff.
func (s *SQLStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff.UTC()).
		Delete(&models.CartSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning cart snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PruneBefore removes snapshot files, and temp files left by interrupted
// saves, whose modification time is before cutoff.
func (s *FileStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("listing cart dir: %w", err)
	}

	var removed int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
