package keyboard

import (
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	ActionUse    = "use"
	ActionDelete = "del"
	ActionKeep   = "keep"
	ActionExport = "export"
)

// maxListButtons keeps the inline keyboard within what Telegram renders comfortably.
const maxListButtons = 10

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// ConversationsKeyboard has one button per conversation that switches to it.
func (b *Builder) ConversationsKeyboard(list []entity.Conversation, activeID string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}

	for i, c := range list {
		if i == maxListButtons {
			break
		}
		label := fmt.Sprintf("%d. %s", i+1, c.Title)
		if c.ID == activeID {
			label = "▶️ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, EncodeCallback(ActionUse, c.ID)),
		))
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// DeleteConfirmKeyboard asks to confirm deletion of a conversation
func (b *Builder) DeleteConfirmKeyboard(convID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, delete", EncodeCallback(ActionDelete, convID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ No, keep", EncodeCallback(ActionKeep, convID)),
		),
	)
}

// ExportKeyboard offers every transcript format
func (b *Builder) ExportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 .md", EncodeCallback(ActionExport, string(entity.FormatMarkdown))),
			tgbotapi.NewInlineKeyboardButtonData("🌐 .html", EncodeCallback(ActionExport, string(entity.FormatHTML))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📕 .pdf", EncodeCallback(ActionExport, string(entity.FormatPDF))),
			tgbotapi.NewInlineKeyboardButtonData("📘 .docx", EncodeCallback(ActionExport, string(entity.FormatDOCX))),
		),
	)
}
