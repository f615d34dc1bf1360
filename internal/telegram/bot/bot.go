package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/telegram/handlers"
	"github.com/futig/rag-conversations/internal/telegram/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Bot represents the Telegram bot
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.TelegramConfig
	handler     *handlers.Handler
	logger      *zap.Logger
	ownerMW     *middleware.OwnerMiddleware
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// New creates a new Telegram bot. newHandler receives the authorized API
// client so handlers and middleware share one connection.
func New(
	cfg *config.TelegramConfig,
	newHandler func(api *tgbotapi.BotAPI) *handlers.Handler,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	return &Bot{
		api:         api,
		cfg:         cfg,
		handler:     newHandler(api),
		logger:      logger,
		ownerMW:     middleware.NewOwnerMiddleware(cfg.OwnerChatID, logger),
		loggingMW:   middleware.NewLoggingMiddleware(logger),
		recoveryMW:  middleware.NewRecoveryMiddleware(logger, api),
		rateLimitMW: middleware.NewRateLimiterMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger, api),
		stopChan:    make(chan struct{}),
	}, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops receiving updates and waits for running handlers and pending
// build notifications, bounded by the shutdown timeout.
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		b.handler.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(ctx, u)
			}(update)
		}
	}
}

// handleUpdateWithMiddleware runs owner check, rate limit, logging and recovery in that order.
func (b *Bot) handleUpdateWithMiddleware(ctx context.Context, update tgbotapi.Update) {
	b.ownerMW.Handle(update, func(u tgbotapi.Update) {
		b.rateLimitMW.Handle(u, func(u2 tgbotapi.Update) {
			b.loggingMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.recoveryMW.Handle(u3, func(u4 tgbotapi.Update) {
					b.handleUpdate(ctx, u4)
				})
			})
		})
	})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx = ctxzap.ToContext(ctx, b.logger.With(zap.Int("update_id", update.UpdateID)))

	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		b.handler.HandleCallback(ctx, NormalizeCallback(update.CallbackQuery))
		return
	}

	if update.Message != nil {
		b.handler.HandleMessage(ctx, NormalizeMessage(update.Message))
	}
}

// NormalizeMessage flattens a Telegram message for handlers.
func NormalizeMessage(m *tgbotapi.Message) *handlers.Message {
	msg := &handlers.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
		Document:  m.Document,
		Video:     m.Video,
	}
	if m.From != nil {
		msg.UserID = m.From.ID
	}
	if m.IsCommand() {
		msg.Command = m.Command()
		msg.Args = m.CommandArguments()
		msg.Text = ""
	}
	return msg
}

// NormalizeCallback flattens a button press for handlers.
func NormalizeCallback(q *tgbotapi.CallbackQuery) *handlers.Message {
	msg := &handlers.Message{
		ChatID:       q.Message.Chat.ID,
		MessageID:    q.Message.MessageID,
		CallbackData: q.Data,
		CallbackID:   q.ID,
	}
	if q.From != nil {
		msg.UserID = q.From.ID
	}
	return msg
}
