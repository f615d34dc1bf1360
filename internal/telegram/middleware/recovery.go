package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/futig/rag-conversations/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// RecoveryMiddleware keeps one broken update from taking the polling loop
// down. The chat gets the generic error text.
type RecoveryMiddleware struct {
	logger *zap.Logger
	sender Sender
}

func NewRecoveryMiddleware(logger *zap.Logger, sender Sender) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger: logger,
		sender: sender,
	}
}

func (m *RecoveryMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		chatID, hasChat := chatOf(update)
		m.logger.Error("handler panicked",
			zap.String("panic", fmt.Sprint(r)),
			zap.ByteString("stack", debug.Stack()),
			zap.Int("update_id", update.UpdateID),
			zap.String("kind", UpdateKind(update)),
			zap.Int64("chat_id", chatID),
		)

		if !hasChat {
			return
		}
		if _, err := m.sender.Send(tgbotapi.NewMessage(chatID, render.ErrGeneric)); err != nil {
			m.logger.Warn("failed to report panic to chat", zap.Error(err), zap.Int64("chat_id", chatID))
		}
	}()

	next(update)
}
