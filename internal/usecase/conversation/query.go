package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	NoAnswerText   = "The service returned no answer for this question."
	QueryErrorText = "Sorry, the answer could not be retrieved. Please try again."
)

// Ask appends the question to the log, queries the remote service and
// appends the answer. A failed query still appends an assistant message with
// QueryErrorText and is reported through Exchange.Failed, not as an error.
// Empty questions and conversations without a ready index are rejected
// before anything is written.
func (s *Store) Ask(ctx context.Context, convID, question string) (entity.Exchange, error) {
	ctx = logger.WithAction(logger.WithConversation(ctx, convID), "ask")
	log := ctxzap.Extract(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		return entity.Exchange{}, entity.ErrEmptyQuestion
	}

	conv, ok := s.Get(convID)
	if !ok {
		log.Warn("question for unknown conversation ignored")
		return entity.Exchange{}, nil
	}
	if !conv.RagReady {
		return entity.Exchange{}, entity.ErrIndexNotReady
	}

	exchange := entity.Exchange{
		Question: s.newMessage(entity.RoleUser, question),
	}
	if ok, err := s.appendMessage(ctx, convID, exchange.Question); err != nil || !ok {
		return entity.Exchange{}, err
	}

	resp, err := s.remote.Query(ctx, convID, question)
	if err != nil {
		qerr := &entity.QueryError{ConversationID: convID, Err: err}
		log.Error("query failed", zap.Error(qerr))
		exchange.Answer = s.newMessage(entity.RoleAssistant, QueryErrorText)
		exchange.Failed = true
	} else {
		exchange.Answer = s.answerMessage(resp)
	}

	// A cancelled or timed out query still gets its answer written.
	saveCtx := context.WithoutCancel(ctx)
	stored, err := s.appendMessage(saveCtx, convID, exchange.Answer)
	if err != nil {
		return exchange, err
	}
	if !stored {
		log.Warn("conversation deleted while waiting for the answer")
		return exchange, nil
	}

	if _, _, err := s.update(saveCtx, convID, func(c *entity.Conversation) {
		c.LastActivity = exchange.Answer.Timestamp
	}); err != nil {
		return exchange, fmt.Errorf("stamp activity: %w", err)
	}

	log.Info("question answered", zap.Bool("failed", exchange.Failed))
	return exchange, nil
}

func (s *Store) newMessage(role entity.Role, content string) entity.Message {
	return entity.Message{
		ID:           s.ids.NewID(),
		Role:         role,
		Content:      content,
		Timestamp:    s.timestamp(),
		VideoSources: []entity.VideoSource{},
		Images:       []string{},
	}
}

func (s *Store) answerMessage(resp *entity.RAGQueryResponse) entity.Message {
	content := NoAnswerText
	if resp.Answer != nil {
		content = *resp.Answer
	}

	msg := s.newMessage(entity.RoleAssistant, content)
	if resp.VideoSources != nil {
		msg.VideoSources = resp.VideoSources
	}
	if resp.Images != nil {
		msg.Images = resp.Images
	}
	return msg
}
