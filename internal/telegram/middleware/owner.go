package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// OwnerMiddleware serves a single chat. The conversation store is not
// partitioned per user, so every other chat is ignored.
type OwnerMiddleware struct {
	ownerChatID int64
	logger      *zap.Logger
}

func NewOwnerMiddleware(ownerChatID int64, logger *zap.Logger) *OwnerMiddleware {
	return &OwnerMiddleware{ownerChatID: ownerChatID, logger: logger}
}

func (m *OwnerMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	chatID, ok := chatOf(update)
	if !ok || chatID != m.ownerChatID {
		m.logger.Debug("update from foreign chat ignored",
			zap.Int64("chat_id", chatID),
			zap.Int("update_id", update.UpdateID),
		)
		return
	}
	next(update)
}
