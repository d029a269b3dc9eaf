package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alvarofc/supachat/models"
	"github.com/alvarofc/supachat/pkg"
	"github.com/alvarofc/supachat/quota"
)

type fakeStore struct {
	created      *models.Conversation
	createErr    error
	messages     map[uuid.UUID][]models.Message
	saveErr      error
	savedTo      uuid.UUID
	savedPayload []models.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[uuid.UUID][]models.Message)}
}

func (f *fakeStore) CreateConversation(_ context.Context, userID, initialMessage string) (*models.Conversation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &models.Conversation{ID: uuid.New(), UserID: userID, Title: initialMessage}
	return f.created, nil
}

func (f *fakeStore) LoadMessages(_ context.Context, id uuid.UUID) ([]models.Message, error) {
	return f.messages[id], nil
}

func (f *fakeStore) SaveMessages(_ context.Context, id uuid.UUID, messages []models.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedTo = id
	f.savedPayload = messages
	f.messages[id] = messages
	return nil
}

type fakeTracker struct {
	allowed    bool
	checkErr   error
	recorded   int
	recordedID quota.Identity
}

func (f *fakeTracker) CanSend(_ context.Context, _ quota.Identity) (bool, error) {
	return f.allowed, f.checkErr
}

func (f *fakeTracker) RecordSend(_ context.Context, id quota.Identity) error {
	f.recorded++
	f.recordedID = id
	return nil
}

type fakeStreamer struct {
	chunks  []string
	err     error
	gotReq  pkg.ChatCompletionRequest
	partial int // emit this many chunks before failing; 0 = fail immediately when err set
}

func (f *fakeStreamer) CreateChatCompletionStream(_ context.Context, req pkg.ChatCompletionRequest, handler func(*pkg.StreamChatCompletionResponse) error) error {
	f.gotReq = req
	emit := f.chunks
	if f.err != nil {
		emit = f.chunks[:f.partial]
	}
	for _, chunk := range emit {
		resp := &pkg.StreamChatCompletionResponse{
			Choices: []pkg.StreamChoice{{Delta: pkg.Delta{Content: chunk}}},
		}
		if err := handler(resp); err != nil {
			return err
		}
	}
	return f.err
}

func newSession(store *fakeStore, tracker *fakeTracker, streamer *fakeStreamer) *SessionLogic {
	return NewSessionLogic(store, tracker, streamer, "test-model", 256, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
}

func TestSubmitQuotaExceeded(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{allowed: false}
	session := newSession(store, tracker, &fakeStreamer{})

	var states []SessionState
	session.WithStateHook(func(s SessionState) { states = append(states, s) })

	_, err := session.Submit(context.Background(), SubmitRequest{Message: "hi"}, func(string) {})
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Nil(t, store.created)
	assert.Equal(t, 0, tracker.recorded)
	assert.Equal(t, []SessionState{StateAwaitingQuotaCheck, StateIdle}, states)
}

func TestSubmitQuotaCheckFailureIsBackendUnavailable(t *testing.T) {
	tracker := &fakeTracker{checkErr: errors.New("profiles table down")}
	session := newSession(newFakeStore(), tracker, &fakeStreamer{})

	var states []SessionState
	session.WithStateHook(func(s SessionState) { states = append(states, s) })

	_, err := session.Submit(context.Background(), SubmitRequest{Message: "hi"}, func(string) {})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, states, StateError)
	assert.Equal(t, StateIdle, states[len(states)-1])
}

func TestSubmitCreatesConversationLazily(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{allowed: true}
	streamer := &fakeStreamer{chunks: []string{"Hel", "lo"}}
	session := newSession(store, tracker, streamer)

	var notified uuid.UUID
	result, err := session.Submit(context.Background(), SubmitRequest{
		Identity:       quota.Registered("user-1"),
		Message:        "hi there",
		OnConversation: func(id uuid.UUID) { notified = id },
	}, func(string) {})
	require.NoError(t, err)

	require.NotNil(t, store.created)
	assert.Equal(t, "user-1", store.created.UserID)
	assert.Equal(t, store.created.ID, result.ConversationID)
	assert.Equal(t, store.created.ID, notified)
}

func TestSubmitReusesExistingConversation(t *testing.T) {
	store := newFakeStore()
	existing := uuid.New()
	store.messages[existing] = []models.Message{
		{Role: models.RoleUser, Content: "earlier question"},
		{Role: models.RoleAssistant, Content: "earlier answer"},
	}
	streamer := &fakeStreamer{chunks: []string{"ok"}}
	session := newSession(store, &fakeTracker{allowed: true}, streamer)

	result, err := session.Submit(context.Background(), SubmitRequest{
		ConversationID: &existing,
		Message:        "follow-up",
	}, func(string) {})
	require.NoError(t, err)
	assert.Nil(t, store.created)
	assert.Equal(t, existing, result.ConversationID)

	// Prior context plus the new message went upstream, in order.
	require.Len(t, streamer.gotReq.Messages, 3)
	assert.Equal(t, "earlier question", streamer.gotReq.Messages[0].Content)
	assert.Equal(t, "earlier answer", streamer.gotReq.Messages[1].Content)
	assert.Equal(t, "follow-up", streamer.gotReq.Messages[2].Content)
}

func TestSubmitAssemblesAndPersistsExactlyOneReply(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{allowed: true}
	streamer := &fakeStreamer{chunks: []string{"Hel", "lo"}}
	session := newSession(store, tracker, streamer)

	var streamed string
	result, err := session.Submit(context.Background(), SubmitRequest{Message: "greet me"}, func(chunk string) {
		streamed += chunk
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", streamed)
	assert.Equal(t, "Hello", result.Reply.Content)
	assert.Equal(t, models.RoleAssistant, result.Reply.Role)
	assert.False(t, result.SaveFailed)

	// Persisted list is [user, assistant], nothing else.
	require.Len(t, store.savedPayload, 2)
	assert.Equal(t, models.RoleUser, store.savedPayload[0].Role)
	assert.Equal(t, "greet me", store.savedPayload[0].Content)
	assert.Equal(t, models.RoleAssistant, store.savedPayload[1].Role)
	assert.Equal(t, "Hello", store.savedPayload[1].Content)

	assert.Equal(t, 1, tracker.recorded)
}

func TestSubmitStreamErrorCarriesPartial(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{allowed: true}
	streamer := &fakeStreamer{chunks: []string{"par", "tial"}, partial: 2, err: errors.New("connection reset")}
	session := newSession(store, tracker, streamer)

	_, err := session.Submit(context.Background(), SubmitRequest{Message: "hi"}, func(string) {})
	require.Error(t, err)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "partial", streamErr.Partial)

	// Nothing persisted, nothing counted.
	assert.Nil(t, store.savedPayload)
	assert.Equal(t, 0, tracker.recorded)
}

func TestSubmitSaveFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("write rejected")
	tracker := &fakeTracker{allowed: true}
	session := newSession(store, tracker, &fakeStreamer{chunks: []string{"done"}})

	result, err := session.Submit(context.Background(), SubmitRequest{Message: "hi"}, func(string) {})
	require.NoError(t, err)
	assert.True(t, result.SaveFailed)
	assert.Equal(t, "done", result.Reply.Content)
	// The round-trip still counts against quota.
	assert.Equal(t, 1, tracker.recorded)
}

func TestSubmitStateSequenceHappyPath(t *testing.T) {
	session := newSession(newFakeStore(), &fakeTracker{allowed: true}, &fakeStreamer{chunks: []string{"x"}})

	var states []SessionState
	session.WithStateHook(func(s SessionState) { states = append(states, s) })

	_, err := session.Submit(context.Background(), SubmitRequest{Message: "hi"}, func(string) {})
	require.NoError(t, err)
	assert.Equal(t, []SessionState{
		StateAwaitingQuotaCheck,
		StateCreatingConversation,
		StateStreaming,
		StatePersisting,
		StateIdle,
	}, states)
}
