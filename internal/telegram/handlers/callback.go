package handlers

import (
	"context"
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/telegram/keyboard"
	"github.com/futig/rag-conversations/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// HandleCallback serves inline keyboard buttons. The query is answered first
// so Telegram stops the button spinner even when the action is slow.
func (h *Handler) HandleCallback(ctx context.Context, msg *Message) {
	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		ctxzap.Warn(ctx, "invalid callback data", zap.Error(err), zap.String("data", msg.CallbackData))
		h.answerCallback(msg.CallbackID, "❌")
		return
	}
	h.answerCallback(msg.CallbackID, "")

	ctxzap.Info(ctx, "callback query received",
		zap.String("callback_action", data.Action),
		zap.String("value", data.Value),
	)

	switch data.Action {
	case keyboard.ActionUse:
		err = h.selectConversation(ctx, msg.ChatID, data.Value)
	case keyboard.ActionDelete:
		err = h.deleteConversation(ctx, msg.ChatID, data.Value)
	case keyboard.ActionKeep:
		err = h.sender.Send(msg.ChatID, render.MsgDeleteCancelled, nil)
	case keyboard.ActionExport:
		err = h.sendExport(ctx, msg.ChatID, entity.ExportFormat(data.Value))
	default:
		err = fmt.Errorf("unknown callback action %q", data.Action)
	}

	h.HandleError(ctx, msg.ChatID, err)
}

func (h *Handler) deleteConversation(ctx context.Context, chatID int64, id string) error {
	if err := h.usecase.Delete(ctx, id); err != nil {
		return err
	}
	return h.sender.Send(chatID, render.MsgDeleted, nil)
}

func (h *Handler) answerCallback(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if _, err := h.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.logger.Error("failed to answer callback",
			zap.Error(err),
			zap.String("callback_id", callbackID),
		)
	}
}
