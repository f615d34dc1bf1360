package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/idgen"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/futig/rag-conversations/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	conversationsKey = "conversations"
	activeKey        = "active_conversation"

	defaultTitle             = "New conversation"
	defaultUploadConcurrency = 4
)

type Options struct {
	DefaultTitle      string
	UploadConcurrency int
	Now               func() time.Time
}

// Store owns the ordered conversation list and the active selection. Every
// mutation builds a new list, persists it and only then publishes it, so
// readers never see state that is not on disk.
type Store struct {
	mu            sync.Mutex
	conversations []entity.Conversation
	activeID      string
	building      map[string]struct{}

	kv         repository.Store
	messages   *MessageLog
	remote     RagConnector
	ids        idgen.Generator
	validator  FileValidator
	formatters FormatterFactory

	defaultTitle      string
	uploadConcurrency int
	now               func() time.Time
	logger            *zap.Logger
}

// New loads persisted state from kv. Uploads that were in flight when the
// previous process stopped are marked failed.
func New(
	ctx context.Context,
	kv repository.Store,
	remote RagConnector,
	ids idgen.Generator,
	validator FileValidator,
	formatters FormatterFactory,
	opts Options,
	logger *zap.Logger,
) (*Store, error) {
	s := &Store{
		building:          make(map[string]struct{}),
		kv:                kv,
		messages:          NewMessageLog(kv),
		remote:            remote,
		ids:               ids,
		validator:         validator,
		formatters:        formatters,
		defaultTitle:      opts.DefaultTitle,
		uploadConcurrency: opts.UploadConcurrency,
		now:               opts.Now,
		logger:            logger,
	}
	if s.defaultTitle == "" {
		s.defaultTitle = defaultTitle
	}
	if s.uploadConcurrency < 1 {
		s.uploadConcurrency = defaultUploadConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	var list []entity.Conversation
	if _, err := repository.GetJSON(ctx, s.kv, conversationsKey, &list); err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	var active string
	if _, err := repository.GetJSON(ctx, s.kv, activeKey, &active); err != nil {
		return fmt.Errorf("load active conversation: %w", err)
	}

	recovered := 0
	for i := range list {
		list[i] = list[i].Clone()
		for j := range list[i].Files {
			if list[i].Files[j].Status == entity.FileStatusUploading {
				list[i].Files[j].Status = entity.FileStatusFailed
				recovered++
			}
		}
	}
	if list == nil {
		list = []entity.Conversation{}
	}

	s.conversations = list
	if indexOf(list, active) >= 0 {
		s.activeID = active
	}

	if recovered > 0 {
		s.logger.Warn("marked interrupted uploads as failed", zap.Int("count", recovered))
		if err := repository.PutJSON(ctx, s.kv, conversationsKey, list); err != nil {
			return fmt.Errorf("save recovered conversations: %w", err)
		}
	}

	s.logger.Info("conversations loaded",
		zap.Int("count", len(list)),
		zap.String("active_conversation", s.activeID),
	)
	return nil
}

func indexOf(list []entity.Conversation, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(list, func(c entity.Conversation) bool { return c.ID == id })
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// commitLocked persists next and publishes it. Caller holds s.mu.
func (s *Store) commitLocked(ctx context.Context, next []entity.Conversation) error {
	if err := repository.PutJSON(ctx, s.kv, conversationsKey, next); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	s.conversations = next
	return nil
}

func (s *Store) setActiveLocked(ctx context.Context, id string) error {
	if id == s.activeID {
		return nil
	}
	if err := repository.PutJSON(ctx, s.kv, activeKey, id); err != nil {
		return fmt.Errorf("save active conversation: %w", err)
	}
	s.activeID = id
	return nil
}

// update applies fn to a private copy of one conversation and commits the
// resulting list. It reports false when the id is unknown.
func (s *Store) update(ctx context.Context, id string, fn func(c *entity.Conversation)) (entity.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(ctx, id, fn)
}

func (s *Store) updateLocked(ctx context.Context, id string, fn func(c *entity.Conversation)) (entity.Conversation, bool, error) {
	idx := indexOf(s.conversations, id)
	if idx < 0 {
		return entity.Conversation{}, false, nil
	}

	next := slices.Clone(s.conversations)
	next[idx] = next[idx].Clone()
	fn(&next[idx])

	if err := s.commitLocked(ctx, next); err != nil {
		return entity.Conversation{}, true, err
	}
	return next[idx].Clone(), true, nil
}

// Create adds an empty conversation at the front of the list and selects it.
func (s *Store) Create(ctx context.Context) (entity.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := entity.Conversation{
		ID:           s.ids.NewID(),
		Title:        s.defaultTitle,
		LastActivity: s.timestamp(),
		Files:        []entity.FileRecord{},
	}

	next := make([]entity.Conversation, 0, len(s.conversations)+1)
	next = append(next, conv)
	next = append(next, s.conversations...)

	if err := s.commitLocked(ctx, next); err != nil {
		return entity.Conversation{}, err
	}
	if err := s.setActiveLocked(ctx, conv.ID); err != nil {
		return entity.Conversation{}, err
	}

	ctxzap.Extract(ctx).Info("conversation created", zap.String("conversation_id", conv.ID))
	return conv.Clone(), nil
}

// Select makes id active. An unknown id clears the selection.
func (s *Store) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.conversations, id) < 0 {
		ctxzap.Extract(ctx).Warn("select unknown conversation, clearing selection", zap.String("conversation_id", id))
		id = ""
	}
	return s.setActiveLocked(ctx, id)
}

// Delete removes the conversation and purges its message log. Unknown ids
// are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx = logger.WithConversation(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.conversations, id)
	if idx < 0 {
		ctxzap.Extract(ctx).Warn("delete unknown conversation ignored")
		return nil
	}

	next := slices.Delete(slices.Clone(s.conversations), idx, idx+1)
	if err := s.commitLocked(ctx, next); err != nil {
		return err
	}
	if s.activeID == id {
		if err := s.setActiveLocked(ctx, ""); err != nil {
			return err
		}
	}

	// Held under s.mu so a concurrent Ask cannot recreate the log.
	if err := s.messages.Clear(ctx, id); err != nil {
		return err
	}

	ctxzap.Extract(ctx).Info("conversation deleted")
	return nil
}

func (s *Store) Get(id string) (entity.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.conversations, id)
	if idx < 0 {
		return entity.Conversation{}, false
	}
	return s.conversations[idx].Clone(), true
}

// List returns the conversations in display order, newest first.
func (s *Store) List() []entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

func (s *Store) Active() (entity.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.conversations, s.activeID)
	if idx < 0 {
		return entity.Conversation{}, false
	}
	return s.conversations[idx].Clone(), true
}

// Rename sets a new title. A blank title resets it to the default.
func (s *Store) Rename(ctx context.Context, id, title string) (entity.Conversation, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = s.defaultTitle
	}

	conv, ok, err := s.update(ctx, id, func(c *entity.Conversation) {
		c.Title = title
		c.LastActivity = s.timestamp()
	})
	if !ok {
		ctxzap.Extract(ctx).Warn("rename unknown conversation ignored", zap.String("conversation_id", id))
	}
	return conv, ok, err
}

// Messages returns the chat history; unknown ids yield an empty log.
func (s *Store) Messages(ctx context.Context, id string) ([]entity.Message, error) {
	return s.messages.Load(ctx, id)
}

// appendMessage writes msg only while the conversation still exists.
func (s *Store) appendMessage(ctx context.Context, id string, msg entity.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.conversations, id) < 0 {
		return false, nil
	}
	if err := s.messages.Append(ctx, id, msg); err != nil {
		return true, err
	}
	return true, nil
}
