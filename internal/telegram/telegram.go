package telegram

import (
	"context"
	"fmt"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/futig/rag-conversations/internal/telegram/bot"
	"github.com/futig/rag-conversations/internal/telegram/handlers"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot initializes the telegram bot over the conversation store.
func NewBot(
	cfg *config.TelegramConfig,
	usecase handlers.ConversationUsecase,
	files handlers.FileDownloader,
	validator *validator.Validator,
	logger *zap.Logger,
) (Bot, error) {
	logger = logger.Named("telegram")

	b, err := bot.New(cfg, func(api *tgbotapi.BotAPI) *handlers.Handler {
		return handlers.NewHandler(usecase, api, files, validator, logger)
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	logger.Info("telegram bot initialized successfully",
		zap.Int64("owner_chat_id", cfg.OwnerChatID),
	)

	return b, nil
}
