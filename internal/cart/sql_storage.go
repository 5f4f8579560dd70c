package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/ticketcart/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStorage upserts snapshots into cart_snapshots.
type SQLStorage struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLStorage(conn *gorm.DB) *SQLStorage {
	return &SQLStorage{db: conn, now: time.Now}
}

func (s *SQLStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var snapshot models.CartSnapshot
	err := s.db.WithContext(ctx).
		Where("storage_key = ?", key).
		Take(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading cart snapshot: %w", err)
	}
	return []byte(snapshot.Items), nil
}

func (s *SQLStorage) Save(ctx context.Context, key string, data []byte) error {
	snapshot := models.CartSnapshot{
		StorageKey: key,
		Items:      string(data),
		UpdatedAt:  s.now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&snapshot).Error
	if err != nil {
		return fmt.Errorf("saving cart snapshot: %w", err)
	}
	return nil
}
