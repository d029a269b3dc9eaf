package models

import "time"

// Profile tracks per-registered-user daily usage. DailyMessageCount is only
// meaningful when LastMessageSentAt equals today's date (YYYY-MM-DD); a stale
// date means the count has rolled over to zero.
type Profile struct {
	UserID            string    `gorm:"primaryKey" json:"user_id"`
	DailyMessageLimit int       `gorm:"default:10" json:"daily_message_limit"`
	DailyMessageCount int       `gorm:"default:0" json:"daily_message_count"`
	LastMessageSentAt string    `json:"last_message_sent_at"` // YYYY-MM-DD
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Profile model.
func (Profile) TableName() string {
	return "profiles"
}
