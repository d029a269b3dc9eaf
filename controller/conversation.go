package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alvarofc/supachat/dao"
	"github.com/alvarofc/supachat/logic"
	"github.com/alvarofc/supachat/models"
)

// ConversationController handles conversation HTTP requests.
type ConversationController struct {
	convoLogic *logic.ConversationLogic
}

func NewConversationController(convoLogic *logic.ConversationLogic) *ConversationController {
	return &ConversationController{convoLogic: convoLogic}
}

// CreateConversation handles POST /conversations
func (c *ConversationController) CreateConversation(ctx *gin.Context) {
	type Request struct {
		InitialMessage string `json:"initial_message" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	convo, err := c.convoLogic.CreateConversation(ctx.Request.Context(), identityFrom(ctx).UserID, req.InitialMessage)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, convo)
}

// GetConversations handles GET /conversations
func (c *ConversationController) GetConversations(ctx *gin.Context) {
	userID := identityFrom(ctx).UserID
	if userID == "" {
		// Anonymous conversations are not listable; they live only in the
		// browser session that started them.
		ctx.JSON(http.StatusOK, []models.ConversationPreview{})
		return
	}

	previews, err := c.convoLogic.GetConversations(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, previews)
}

// GetMessages handles GET /conversations/:id/messages
func (c *ConversationController) GetMessages(ctx *gin.Context) {
	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	messages, err := c.convoLogic.GetConversationMessages(ctx.Request.Context(), convoID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, messages)
}

// SaveMessages handles PUT /conversations/:id/messages
func (c *ConversationController) SaveMessages(ctx *gin.Context) {
	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	type Request struct {
		Messages []models.Message `json:"messages" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.convoLogic.SaveConversationMessages(ctx.Request.Context(), convoID, req.Messages); err != nil {
		if errors.Is(err, dao.ErrConversationNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
