package handlers

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxSendRetries = 3
	retrySleepBase = time.Second
)

// MessageSender provides centralized message sending functionality
type MessageSender struct {
	bot       BotAPI
	logger    *zap.Logger
	retryBase time.Duration
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot BotAPI, logger *zap.Logger) *MessageSender {
	return &MessageSender{
		bot:       bot,
		logger:    logger,
		retryBase: retrySleepBase,
	}
}

// Send sends a text message to the specified chat
func (s *MessageSender) Send(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	_, err := s.bot.Send(msg)
	if err != nil {
		s.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		return err
	}

	return nil
}

// SendCritical retries delivery of messages the user must not miss, such as
// the outcome of a background build.
func (s *MessageSender) SendCritical(chatID int64, text string) error {
	return s.withRetry(chatID, tgbotapi.NewMessage(chatID, text))
}

// SendDocument uploads a generated file to the chat
func (s *MessageSender) SendDocument(chatID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: data,
	})
	return s.withRetry(chatID, doc)
}

func (s *MessageSender) withRetry(chatID int64, c tgbotapi.Chattable) error {
	var lastErr error
	for attempt := 0; attempt < maxSendRetries; attempt++ {
		_, err := s.bot.Send(c)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("message sent after retry",
					zap.Int("attempt", attempt+1),
					zap.Int64("chat_id", chatID),
				)
			}
			return nil
		}

		lastErr = err

		if attempt < maxSendRetries-1 {
			sleep := s.retryBase * time.Duration(attempt+1)
			s.logger.Warn("failed to send message, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt+1),
				zap.Duration("retry_in", sleep),
				zap.Int64("chat_id", chatID),
			)
			time.Sleep(sleep)
		}
	}

	s.logger.Error("failed to send message after all retries",
		zap.Error(lastErr),
		zap.Int("max_retries", maxSendRetries),
		zap.Int64("chat_id", chatID),
	)
	return lastErr
}
