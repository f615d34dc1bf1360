package middleware

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// LoggingMiddleware logs every update with its kind and duration
type LoggingMiddleware struct {
	logger *zap.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

// Handle logs the update
func (m *LoggingMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	start := time.Now()

	chatID, _ := chatOf(update)
	log := m.logger.With(
		zap.Int64("chat_id", chatID),
		zap.Int("update_id", update.UpdateID),
	)
	log.Debug("telegram update received", zap.String("type", UpdateKind(update)))

	next(update)

	log.Info("telegram update processed",
		zap.String("type", UpdateKind(update)),
		zap.Duration("duration", time.Since(start)),
	)
}

// UpdateKind names the payload of an update for logs.
func UpdateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message == nil:
		return "other"
	case update.Message.IsCommand():
		return "command"
	case update.Message.Document != nil:
		return "document"
	case update.Message.Video != nil:
		return "video"
	case update.Message.Text != "":
		return "text"
	default:
		return "other"
	}
}
