package ws

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/mocks"
	"chat-relay/internal/models"
)

func newTestRelay(repo *mocks.MessageRepositoryMock) (*RelayHandler, *Hub) {
	hub := NewHub()
	return NewRelayHandler(hub, repo, 48*time.Hour, 100), hub
}

func inbound(t *testing.T, username, content string) []byte {
	t.Helper()
	raw, err := json.Marshal(models.InboundMessage{Username: username, Content: content})
	require.NoError(t, err)
	return raw
}

func TestHandleInboundBroadcastsToAllIncludingSender(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, hub := newTestRelay(repo)

	sender := &stubSession{}
	other := &stubSession{}
	hub.Add(sender, ConnInfo{ConnID: "sender", IP: "10.0.0.1"})
	hub.Add(other, ConnInfo{ConnID: "other"})

	stored := models.Message{ID: 7, Username: "Alice", Content: "hi", Timestamp: time.Now(), IPAddress: "10.0.0.1"}
	repo.On("Insert", mock.Anything, "Alice", "hi", "10.0.0.1").Return(stored, nil).Once()

	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender", IP: "10.0.0.1"}, inbound(t, "Alice", "hi"))

	require.Len(t, sender.events, 1)
	require.Len(t, other.events, 1)
	assert.Equal(t, models.EventChatMessage, sender.events[0].Type)
	assert.Equal(t, int64(7), sender.events[0].Message.ID)
	assert.Equal(t, "Alice", other.events[0].Message.Username)
	assert.Equal(t, "hi", other.events[0].Message.Content)
	repo.AssertExpectations(t)
}

func TestHandleInboundRejectsEmptyUsername(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, hub := newTestRelay(repo)

	sender := &stubSession{}
	other := &stubSession{}
	hub.Add(sender, ConnInfo{ConnID: "sender"})
	hub.Add(other, ConnInfo{ConnID: "other"})

	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender"}, inbound(t, "", "hi"))

	require.Len(t, sender.events, 1)
	assert.Equal(t, models.EventError, sender.events[0].Type)
	assert.NotEmpty(t, sender.events[0].Error)
	assert.Empty(t, other.events)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInboundRejectsWhitespaceContent(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, hub := newTestRelay(repo)

	sender := &stubSession{}
	hub.Add(sender, ConnInfo{ConnID: "sender"})

	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender"}, inbound(t, "Alice", "   "))

	require.Len(t, sender.events, 1)
	assert.Equal(t, models.EventError, sender.events[0].Type)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInboundContentLengthBoundary(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, hub := newTestRelay(repo)

	sender := &stubSession{}
	hub.Add(sender, ConnInfo{ConnID: "sender"})

	// Exactly 500 characters passes validation.
	exact := strings.Repeat("x", 500)
	repo.On("Insert", mock.Anything, "Alice", exact, "").
		Return(models.Message{ID: 1, Username: "Alice", Content: exact, Timestamp: time.Now()}, nil).Once()

	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender"}, inbound(t, "Alice", exact))
	require.Len(t, sender.events, 1)
	assert.Equal(t, models.EventChatMessage, sender.events[0].Type)

	// 501 characters is rejected outright, never persisted.
	over := strings.Repeat("x", 501)
	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender"}, inbound(t, "Alice", over))
	require.Len(t, sender.events, 2)
	assert.Equal(t, models.EventError, sender.events[1].Type)

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestHandleInboundPersistenceFailure(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, hub := newTestRelay(repo)

	sender := &stubSession{}
	other := &stubSession{}
	hub.Add(sender, ConnInfo{ConnID: "sender"})
	hub.Add(other, ConnInfo{ConnID: "other"})

	repo.On("Insert", mock.Anything, "Alice", "hi", "").
		Return(models.Message{}, assert.AnError).Once()

	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender"}, inbound(t, "Alice", "hi"))

	require.Len(t, sender.events, 1)
	assert.Equal(t, models.EventError, sender.events[0].Type)
	assert.Empty(t, other.events)
	repo.AssertExpectations(t)
}

func TestHandleInboundRejectsMalformedPayload(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, hub := newTestRelay(repo)

	sender := &stubSession{}
	hub.Add(sender, ConnInfo{ConnID: "sender"})

	handler.handleInbound(context.Background(), sender, ConnInfo{ConnID: "sender"}, []byte("not json"))

	require.Len(t, sender.events, 1)
	assert.Equal(t, models.EventError, sender.events[0].Type)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendSnapshotDeliversHistoryOldestFirst(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, _ := newTestRelay(repo)

	now := time.Now()
	history := []models.Message{
		{ID: 1, Username: "alice", Content: "first", Timestamp: now.Add(-2 * time.Hour), IPAddress: "10.0.0.1"},
		{ID: 2, Username: "bob", Content: "second", Timestamp: now.Add(-time.Hour), IPAddress: "10.0.0.2"},
	}
	repo.On("Recent", mock.Anything, 48*time.Hour, 100).Return(history, nil).Once()

	sess := &stubSession{}
	handler.sendSnapshot(context.Background(), sess, ConnInfo{ConnID: "new"})

	require.Len(t, sess.events, 1)
	event := sess.events[0]
	assert.Equal(t, models.EventChatHistory, event.Type)
	require.Len(t, event.History, 2)
	assert.Equal(t, "first", event.History[0].Content)
	assert.Equal(t, "second", event.History[1].Content)
	repo.AssertExpectations(t)
}

func TestSendSnapshotStoreFailureKeepsSessionQuiet(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	handler, _ := newTestRelay(repo)

	repo.On("Recent", mock.Anything, 48*time.Hour, 100).
		Return(([]models.Message)(nil), assert.AnError).Once()

	sess := &stubSession{}
	handler.sendSnapshot(context.Background(), sess, ConnInfo{ConnID: "new"})

	assert.Empty(t, sess.events)
	repo.AssertExpectations(t)
}

func TestHistoryExcludesSourceAddress(t *testing.T) {
	history := models.HistoryView([]models.Message{
		{ID: 1, Username: "alice", Content: "hi", Timestamp: time.Now(), IPAddress: "10.0.0.1"},
	})
	raw, err := json.Marshal(models.RelayEvent{Type: models.EventChatHistory, History: history})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "10.0.0.1")
	assert.NotContains(t, string(raw), "ip_address")
}

func TestBroadcastMessageExcludesSourceAddress(t *testing.T) {
	msg := models.Message{ID: 1, Username: "alice", Content: "hi", Timestamp: time.Now(), IPAddress: "10.0.0.1"}
	raw, err := json.Marshal(models.RelayEvent{Type: models.EventChatMessage, Message: &msg})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "10.0.0.1")
}
