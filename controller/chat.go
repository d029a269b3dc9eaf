package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alvarofc/supachat/logic"
	"github.com/alvarofc/supachat/pkg"
	"github.com/alvarofc/supachat/quota"
)

// ChatController handles the streaming chat endpoint.
type ChatController struct {
	session   *logic.SessionLogic
	turnstile *pkg.TurnstileVerifier
}

func NewChatController(session *logic.SessionLogic, turnstile *pkg.TurnstileVerifier) *ChatController {
	return &ChatController{session: session, turnstile: turnstile}
}

// Chat handles POST /chat. The response body is the assistant reply streamed
// as raw text chunks; the conversation id (newly created or echoed back) is
// exposed in the X-Conversation-Id header before the first chunk.
func (c *ChatController) Chat(ctx *gin.Context) {
	type Request struct {
		Message        string `json:"message" binding:"required"`
		ConversationID string `json:"conversation_id"`
		UserID         string `json:"user_id"`
		TurnstileToken string `json:"turnstile_token"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.turnstile.Verify(ctx.Request.Context(), req.TurnstileToken); err != nil {
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var convoID *uuid.UUID
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
			return
		}
		convoID = &parsed
	}

	// Streaming headers go on once the quota gate has passed and the
	// conversation id is known; failures before that point still get a plain
	// JSON error response.
	submit := logic.SubmitRequest{
		Identity:       identityFrom(ctx),
		ConversationID: convoID,
		Message:        req.Message,
		OnConversation: func(id uuid.UUID) {
			ctx.Header("X-Conversation-Id", id.String())
			ctx.Header("Content-Type", "text/event-stream")
			ctx.Header("Cache-Control", "no-cache")
			ctx.Header("Connection", "keep-alive")
		},
	}

	streamed := false
	_, err := c.session.Submit(ctx.Request.Context(), submit, func(chunk string) {
		streamed = true
		ctx.Writer.WriteString(chunk)
		ctx.Writer.Flush()
	})
	if err != nil {
		// Once chunks have gone out the status is already committed; the
		// client sees a truncated stream and retries.
		if streamed {
			return
		}
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": "Daily message limit reached"})
		case errors.Is(err, logic.ErrBackendUnavailable):
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.Writer.Flush()
}
