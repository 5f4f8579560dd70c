package models

import "time"

// CartSnapshot is the persisted JSON item array of one ledger key.
type CartSnapshot struct {
	StorageKey string    `gorm:"column:storage_key;primaryKey;size:255"`
	Items      string    `gorm:"column:items;type:text;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
