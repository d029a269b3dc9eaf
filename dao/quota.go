package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alvarofc/supachat/models"
)

// QuotaStoreDAO is a gorm-backed key-value store for quota records. It stands
// in for the per-browser local storage of the reference client: one row per
// identity key, opaque serialized value.
type QuotaStoreDAO struct {
	db *gorm.DB
}

func NewQuotaStoreDAO(db *gorm.DB) *QuotaStoreDAO {
	return &QuotaStoreDAO{db: db}
}

// Get returns the stored value for a key, with ok=false when absent.
func (d *QuotaStoreDAO) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.QuotaEntry
	err := d.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set upserts the value for a key.
func (d *QuotaStoreDAO) Set(ctx context.Context, key, value string) error {
	entry := models.QuotaEntry{Key: key, Value: value}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}
