package models

import "time"

// QuotaEntry is one persisted quota counter, keyed per identity ("anon"
// sentinel or a user id). Value holds a serialized {count, date} record; the
// store treats it as opaque text.
type QuotaEntry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for QuotaEntry model.
func (QuotaEntry) TableName() string {
	return "quota_entries"
}
