package dao

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alvarofc/supachat/models"
)

// ErrConversationNotFound is returned by writes against a missing conversation.
// Reads deliberately do not surface it: a missing conversation loads as an
// empty message list, same as an empty one.
var ErrConversationNotFound = errors.New("conversation not found")

const titlePrefixLen = 50

// ConversationDAO handles conversation-related database operations
type ConversationDAO struct {
	db *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{db: db}
}

// CreateConversation creates a new conversation for a user. The title is
// derived once from the first message and never recomputed; the message list
// starts empty and is filled in by the first save.
func (d *ConversationDAO) CreateConversation(ctx context.Context, userID, initialMessage string) (*models.Conversation, error) {
	if userID == "" {
		userID = models.AnonymousUserID
	}
	convo := &models.Conversation{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    deriveTitle(initialMessage),
		Messages: datatypes.JSON([]byte("[]")),
	}
	if err := d.db.WithContext(ctx).Create(convo).Error; err != nil {
		return nil, err
	}
	return convo, nil
}

// GetConversationByID retrieves a conversation by ID
func (d *ConversationDAO) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var convo models.Conversation
	if err := d.db.WithContext(ctx).First(&convo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &convo, nil
}

// ListConversations retrieves conversation previews for a user, most recently
// updated first.
func (d *ConversationDAO) ListConversations(ctx context.Context, userID string) ([]models.ConversationPreview, error) {
	previews := []models.ConversationPreview{}
	err := d.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Select("id, title, updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&previews).Error
	if err != nil {
		return nil, err
	}
	return previews, nil
}

// LoadMessages returns the ordered message list of a conversation. A missing
// conversation and an empty one both yield an empty slice.
func (d *ConversationDAO) LoadMessages(ctx context.Context, id uuid.UUID) ([]models.Message, error) {
	var convo models.Conversation
	err := d.db.WithContext(ctx).Select("messages").First(&convo, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Message{}, nil
		}
		return nil, err
	}

	messages := []models.Message{}
	if len(convo.Messages) == 0 {
		return messages, nil
	}
	if err := json.Unmarshal(convo.Messages, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveMessages replaces the full message list of a conversation and bumps
// updated_at. There is no optimistic-concurrency guard: the last writer wins.
func (d *ConversationDAO) SaveMessages(ctx context.Context, id uuid.UUID, messages []models.Message) error {
	if messages == nil {
		messages = []models.Message{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return err
	}

	res := d.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"messages":   datatypes.JSON(payload),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func deriveTitle(initialMessage string) string {
	runes := []rune(initialMessage)
	if len(runes) > titlePrefixLen {
		runes = runes[:titlePrefixLen]
	}
	return string(runes) + "..."
}
