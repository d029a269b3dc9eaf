package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnonymousUserID is the sentinel stored in place of a real user id for
// conversations started without signing in.
const AnonymousUserID = "anonymous"

// Conversation represents a conversation. The full message list lives on the
// row as a JSONB document and is always replaced wholesale on save; there is
// no version column, so concurrent writers are last-write-wins.
type Conversation struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"not null" json:"title"`
	Messages  datatypes.JSON `gorm:"type:jsonb" json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ConversationPreview is the listing projection: no message payload.
type ConversationPreview struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}
