package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alvarofc/supachat/models"
	"github.com/alvarofc/supachat/pkg"
	"github.com/alvarofc/supachat/quota"
)

// SessionState is the observable state of one submission as it moves through
// the controller. A submission either ends back at StateIdle or passes
// through StateError on its way there; there is no automatic retry from any
// state.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingQuotaCheck
	StateCreatingConversation
	StateStreaming
	StatePersisting
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingQuotaCheck:
		return "awaiting_quota_check"
	case StateCreatingConversation:
		return "creating_conversation"
	case StateStreaming:
		return "streaming"
	case StatePersisting:
		return "persisting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrBackendUnavailable wraps storage failures during orchestration.
var ErrBackendUnavailable = errors.New("backend unavailable")

// StreamError reports a stream that terminated without completing. Partial
// holds whatever chunks arrived before the failure; callers may still show it
// but it is never persisted.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ConversationStore is the persistence surface the session controller needs.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, initialMessage string) (*models.Conversation, error)
	LoadMessages(ctx context.Context, id uuid.UUID) ([]models.Message, error)
	SaveMessages(ctx context.Context, id uuid.UUID, messages []models.Message) error
}

// QuotaTracker is the quota surface the session controller needs.
type QuotaTracker interface {
	CanSend(ctx context.Context, id quota.Identity) (bool, error)
	RecordSend(ctx context.Context, id quota.Identity) error
}

// ChatStreamer streams completions from the upstream LLM.
type ChatStreamer interface {
	CreateChatCompletionStream(ctx context.Context, request pkg.ChatCompletionRequest, handler func(*pkg.StreamChatCompletionResponse) error) error
}

// SubmitRequest is one user submission.
type SubmitRequest struct {
	Identity       quota.Identity
	ConversationID *uuid.UUID // nil when no conversation exists yet
	Message        string

	// OnConversation, when set, is invoked with the resolved conversation id
	// before streaming starts. The HTTP layer uses it to expose a lazily
	// created id while the response headers are still writable.
	OnConversation func(uuid.UUID)
}

// SubmitResult is the outcome of a completed submission. SaveFailed means the
// assistant reply streamed to the user but its persistence was rejected; the
// displayed conversation and the stored one have diverged.
type SubmitResult struct {
	ConversationID uuid.UUID
	Reply          models.Message
	SaveFailed     bool
}

// SessionLogic orchestrates one submission end to end: quota check, lazy
// conversation creation, streaming, then quota increment and persistence.
// Two rapid submissions are not serialized against each other; the last
// writer to a conversation wins.
type SessionLogic struct {
	store     ConversationStore
	tracker   QuotaTracker
	chat      ChatStreamer
	model     string
	maxTokens uint32
	logger    *zap.Logger
	onState   func(SessionState)
	now       func() time.Time
}

func NewSessionLogic(store ConversationStore, tracker QuotaTracker, chat ChatStreamer, model string, maxTokens uint32, logger *zap.Logger) *SessionLogic {
	return &SessionLogic{
		store:     store,
		tracker:   tracker,
		chat:      chat,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
		now:       time.Now,
	}
}

// WithStateHook registers an observer for state transitions.
func (l *SessionLogic) WithStateHook(hook func(SessionState)) *SessionLogic {
	l.onState = hook
	return l
}

// WithClock overrides the controller's clock.
func (l *SessionLogic) WithClock(now func() time.Time) *SessionLogic {
	l.now = now
	return l
}

func (l *SessionLogic) setState(s SessionState) {
	if l.onState != nil {
		l.onState(s)
	}
}

func (l *SessionLogic) fail(err error) error {
	l.setState(StateError)
	l.setState(StateIdle)
	return err
}

// Submit runs one user message through the full pipeline. onChunk is invoked
// once per streamed text chunk as it arrives. Abandoning the passed context
// is the only way to cancel an in-flight stream.
func (l *SessionLogic) Submit(ctx context.Context, req SubmitRequest, onChunk func(string)) (*SubmitResult, error) {
	l.setState(StateAwaitingQuotaCheck)

	ok, err := l.tracker.CanSend(ctx, req.Identity)
	if err != nil {
		return nil, l.fail(fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
	}
	if !ok {
		l.setState(StateIdle)
		return nil, quota.ErrQuotaExceeded
	}

	// Lazily create the conversation on the first message.
	var convoID uuid.UUID
	if req.ConversationID == nil {
		l.setState(StateCreatingConversation)
		convo, err := l.store.CreateConversation(ctx, req.Identity.UserID, req.Message)
		if err != nil {
			return nil, l.fail(fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
		}
		convoID = convo.ID
	} else {
		convoID = *req.ConversationID
	}

	if req.OnConversation != nil {
		req.OnConversation(convoID)
	}

	prior, err := l.store.LoadMessages(ctx, convoID)
	if err != nil {
		return nil, l.fail(fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
	}

	l.setState(StateStreaming)

	chatMessages := make([]pkg.RequestMessage, 0, len(prior)+1)
	for _, msg := range prior {
		chatMessages = append(chatMessages, pkg.RequestMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	chatMessages = append(chatMessages, pkg.RequestMessage{
		Role:    models.RoleUser,
		Content: req.Message,
	})

	var fullResponse strings.Builder
	streamErr := l.chat.CreateChatCompletionStream(ctx, pkg.ChatCompletionRequest{
		Model:     l.model,
		Messages:  chatMessages,
		MaxTokens: l.maxTokens,
	}, func(resp *pkg.StreamChatCompletionResponse) error {
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				fullResponse.WriteString(choice.Delta.Content)
				onChunk(choice.Delta.Content)
			}
		}
		return nil
	})
	if streamErr != nil {
		return nil, l.fail(&StreamError{Partial: fullResponse.String(), Err: streamErr})
	}

	l.setState(StatePersisting)

	// The round-trip succeeded; count it before persisting. A failed count
	// update is logged but does not discard the response.
	if err := l.tracker.RecordSend(ctx, req.Identity); err != nil {
		l.logger.Error("failed to record quota usage",
			zap.String("identity", req.Identity.Key()),
			zap.Error(err))
	}

	now := l.now()
	userMsg := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: now,
	}
	reply := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   fullResponse.String(),
		Timestamp: now,
	}

	result := &SubmitResult{ConversationID: convoID, Reply: reply}

	// A save failure is non-fatal: the user already saw the reply, only the
	// stored copy is stale.
	final := append(prior, userMsg, reply)
	if err := l.store.SaveMessages(ctx, convoID, final); err != nil {
		l.logger.Error("failed to save conversation",
			zap.String("conversation_id", convoID.String()),
			zap.Error(err))
		result.SaveFailed = true
	}

	l.setState(StateIdle)
	return result, nil
}
