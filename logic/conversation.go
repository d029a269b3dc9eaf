package logic

import (
	"context"

	"github.com/google/uuid"

	"github.com/alvarofc/supachat/dao"
	"github.com/alvarofc/supachat/models"
)

// ConversationLogic handles conversation-related business logic
type ConversationLogic struct {
	convoDAO *dao.ConversationDAO
}

func NewConversationLogic(convoDAO *dao.ConversationDAO) *ConversationLogic {
	return &ConversationLogic{convoDAO: convoDAO}
}

// CreateConversation creates a new conversation for a user. An empty user id
// falls back to the anonymous sentinel.
func (l *ConversationLogic) CreateConversation(ctx context.Context, userID, initialMessage string) (*models.Conversation, error) {
	return l.convoDAO.CreateConversation(ctx, userID, initialMessage)
}

// GetConversations retrieves conversation previews for a user, newest first.
func (l *ConversationLogic) GetConversations(ctx context.Context, userID string) ([]models.ConversationPreview, error) {
	return l.convoDAO.ListConversations(ctx, userID)
}

// GetConversationMessages retrieves the ordered message list of a
// conversation. Missing and empty conversations both come back empty.
func (l *ConversationLogic) GetConversationMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	return l.convoDAO.LoadMessages(ctx, conversationID)
}

// SaveConversationMessages replaces the full message list of a conversation.
func (l *ConversationLogic) SaveConversationMessages(ctx context.Context, conversationID uuid.UUID, messages []models.Message) error {
	return l.convoDAO.SaveMessages(ctx, conversationID, messages)
}
