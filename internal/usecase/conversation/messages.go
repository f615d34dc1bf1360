package conversation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/repository"
)

const messagesKeyPrefix = "messages:"

func messagesKey(conversationID string) string {
	return messagesKeyPrefix + conversationID
}

// MessageLog persists each conversation's chat turns under its own key, so
// listing conversations never loads message bodies.
type MessageLog struct {
	mu sync.Mutex
	kv repository.Store
}

func NewMessageLog(kv repository.Store) *MessageLog {
	return &MessageLog{kv: kv}
}

// Load returns the persisted sequence, or an empty one when nothing was written.
func (l *MessageLog) Load(ctx context.Context, conversationID string) ([]entity.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.loadLocked(ctx, conversationID)
}

func (l *MessageLog) loadLocked(ctx context.Context, conversationID string) ([]entity.Message, error) {
	var msgs []entity.Message
	if _, err := repository.GetJSON(ctx, l.kv, messagesKey(conversationID), &msgs); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if msgs == nil {
		msgs = []entity.Message{}
	}
	return msgs, nil
}

// Append adds msg at the end and writes the whole log back.
func (l *MessageLog) Append(ctx context.Context, conversationID string, msg entity.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs, err := l.loadLocked(ctx, conversationID)
	if err != nil {
		return err
	}

	if msg.VideoSources == nil {
		msg.VideoSources = []entity.VideoSource{}
	}
	if msg.Images == nil {
		msg.Images = []string{}
	}

	next := append(slices.Clip(msgs), msg)
	if err := repository.PutJSON(ctx, l.kv, messagesKey(conversationID), next); err != nil {
		return fmt.Errorf("save messages: %w", err)
	}
	return nil
}

// Clear removes the persisted entry entirely.
func (l *MessageLog) Clear(ctx context.Context, conversationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Delete(ctx, messagesKey(conversationID)); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}
