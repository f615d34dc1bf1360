package handlers

import (
	"context"
	"sync"

	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/futig/rag-conversations/internal/telegram/keyboard"
	"github.com/futig/rag-conversations/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Message represents a normalized Telegram message or callback query
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	Command      string
	Args         string
	Document     *tgbotapi.Document
	Video        *tgbotapi.Video
	CallbackData string
	CallbackID   string
}

// Handler serves the single bot owner over the conversation store. The
// active conversation of the store is the bot's only state.
type Handler struct {
	usecase   ConversationUsecase
	api       BotAPI
	sender    *MessageSender
	files     FileDownloader
	validator *validator.Validator
	keyboard  *keyboard.Builder
	logger    *zap.Logger

	// background tracks build notifications that outlive the update.
	background sync.WaitGroup
}

func NewHandler(
	usecase ConversationUsecase,
	api BotAPI,
	files FileDownloader,
	validator *validator.Validator,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		usecase:   usecase,
		api:       api,
		sender:    NewMessageSender(api, logger),
		files:     files,
		validator: validator,
		keyboard:  keyboard.NewBuilder(),
		logger:    logger,
	}
}

// HandleMessage routes commands, attachments and questions.
func (h *Handler) HandleMessage(ctx context.Context, msg *Message) {
	var err error
	switch {
	case msg.Command != "":
		err = h.handleCommand(ctx, msg)
	case msg.Document != nil || msg.Video != nil:
		err = h.handleFile(ctx, msg)
	case msg.Text != "":
		err = h.handleQuestion(ctx, msg)
	default:
		ctxzap.Debug(ctx, "unsupported message ignored")
		return
	}

	h.HandleError(ctx, msg.ChatID, err)
}

// Wait blocks until background build notifications are delivered.
func (h *Handler) Wait() {
	h.background.Wait()
}

func (h *Handler) handleQuestion(ctx context.Context, msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	typing := NewTypingNotifier(h.api, msg.ChatID, tgbotapi.ChatTyping, h.logger)
	typing.Start(ctx)
	exchange, err := h.usecase.Ask(ctx, conv.ID, msg.Text)
	typing.Stop()
	if err != nil {
		return err
	}
	if exchange.Answer.ID == "" {
		// Deleted between Active and Ask.
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	return h.sender.Send(msg.ChatID, render.RenderAnswer(exchange.Answer), nil)
}
