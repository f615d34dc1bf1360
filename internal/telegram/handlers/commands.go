package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

func (h *Handler) handleCommand(ctx context.Context, msg *Message) error {
	ctxzap.Info(ctx, "command received", zap.String("command", msg.Command))

	switch msg.Command {
	case "start":
		return h.sender.Send(msg.ChatID, render.MsgWelcome, nil)
	case "help":
		return h.sender.Send(msg.ChatID, render.MsgHelp, nil)
	case "new":
		return h.newConversation(ctx, msg)
	case "list":
		return h.listConversations(msg)
	case "use":
		return h.useConversation(ctx, msg)
	case "delete":
		return h.confirmDelete(msg)
	case "files":
		return h.listFiles(msg)
	case "remove":
		return h.removeFile(ctx, msg)
	case "build":
		return h.build(ctx, msg)
	case "status":
		return h.status(ctx, msg)
	case "export":
		return h.export(ctx, msg)
	default:
		return h.sender.Send(msg.ChatID, render.ErrUnknownCommand, nil)
	}
}

// ParseIndex reads a 1-based list position and returns it 0-based.
func ParseIndex(arg string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func (h *Handler) newConversation(ctx context.Context, msg *Message) error {
	conv, err := h.usecase.Create(ctx)
	if err != nil {
		return err
	}
	return h.sender.Send(msg.ChatID, fmt.Sprintf(render.MsgCreated, conv.Title), nil)
}

func (h *Handler) listConversations(msg *Message) error {
	list := h.usecase.List()
	activeID := ""
	if active, ok := h.usecase.Active(); ok {
		activeID = active.ID
	}

	var markup interface{}
	if len(list) > 0 {
		markup = h.keyboard.ConversationsKeyboard(list, activeID)
	}
	return h.sender.Send(msg.ChatID, render.RenderConversationList(list, activeID), markup)
}

func (h *Handler) useConversation(ctx context.Context, msg *Message) error {
	list := h.usecase.List()
	i, ok := ParseIndex(msg.Args, len(list))
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrBadIndex, nil)
	}
	return h.selectConversation(ctx, msg.ChatID, list[i].ID)
}

func (h *Handler) selectConversation(ctx context.Context, chatID int64, id string) error {
	conv, ok := h.usecase.Get(id)
	if !ok {
		return h.sender.Send(chatID, render.ErrBadIndex, nil)
	}
	if err := h.usecase.Select(ctx, id); err != nil {
		return err
	}
	return h.sender.Send(chatID, fmt.Sprintf(render.MsgSelected, conv.Title), nil)
}

func (h *Handler) confirmDelete(msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}
	return h.sender.Send(msg.ChatID, fmt.Sprintf(render.MsgDeleteConfirm, conv.Title), h.keyboard.DeleteConfirmKeyboard(conv.ID))
}

func (h *Handler) listFiles(msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}
	return h.sender.Send(msg.ChatID, render.RenderFiles(conv), nil)
}

func (h *Handler) removeFile(ctx context.Context, msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	i, ok := ParseIndex(msg.Args, len(conv.Files))
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrBadIndex, nil)
	}

	file := conv.Files[i]
	if err := h.usecase.RemoveFile(ctx, conv.ID, file.ID); err != nil {
		return err
	}
	return h.sender.Send(msg.ChatID, fmt.Sprintf(render.MsgFileRemoved, file.Name), nil)
}

// build starts the index build and reports its outcome in a later message.
func (h *Handler) build(ctx context.Context, msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	bgCtx := ctxzap.ToContext(context.Background(), ctxzap.Extract(ctx))
	done, err := h.usecase.BuildAsync(bgCtx, conv.ID)
	if err != nil {
		return err
	}

	if err := h.sender.Send(msg.ChatID, render.MsgBuildStarted, nil); err != nil {
		ctxzap.Warn(ctx, "build start notice not delivered", zap.Error(err))
	}

	h.background.Add(1)
	go func() {
		defer h.background.Done()

		text := render.MsgBuildDone
		if err := <-done; err != nil {
			ctxzap.Warn(bgCtx, "background build finished with error", zap.Error(err))
			text = render.ClassifyError(err)
		}
		_ = h.sender.SendCritical(msg.ChatID, text)
	}()

	return nil
}

func (h *Handler) status(ctx context.Context, msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	status, err := h.usecase.RefreshStatus(ctx, conv.ID)
	if err != nil {
		ctxzap.Warn(ctx, "status refresh failed, showing local status", zap.Error(err))
		status = h.usecase.BuildStatus(conv.ID)
	}
	if refreshed, ok := h.usecase.Get(conv.ID); ok {
		conv = refreshed
	}
	return h.sender.Send(msg.ChatID, render.RenderStatus(conv, status), nil)
}

func (h *Handler) export(ctx context.Context, msg *Message) error {
	if strings.TrimSpace(msg.Args) == "" {
		return h.sender.Send(msg.ChatID, render.MsgChooseFormat, h.keyboard.ExportKeyboard())
	}

	format, err := entity.ParseExportFormat(msg.Args)
	if err != nil {
		return h.sender.Send(msg.ChatID, render.ErrUnknownFormat, nil)
	}
	return h.sendExport(ctx, msg.ChatID, format)
}

func (h *Handler) sendExport(ctx context.Context, chatID int64, format entity.ExportFormat) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(chatID, render.ErrNoActive, nil)
	}

	upload := NewTypingNotifier(h.api, chatID, tgbotapi.ChatUploadDocument, h.logger)
	upload.Start(ctx)
	defer upload.Stop()

	file, err := h.usecase.Export(ctx, conv.ID, format)
	if err != nil {
		return err
	}
	return h.sender.SendDocument(chatID, file.Filename, file.Content)
}
