package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessage(t *testing.T) {
	cmd := NormalizeMessage(&tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{ID: 7},
		Text:      "/use 2",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 4}},
	})
	assert.Equal(t, "use", cmd.Command)
	assert.Equal(t, "2", cmd.Args)
	assert.Empty(t, cmd.Text)
	assert.Equal(t, int64(42), cmd.ChatID)
	assert.Equal(t, int64(7), cmd.UserID)

	question := NormalizeMessage(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Text: "why?"})
	assert.Empty(t, question.Command)
	assert.Equal(t, "why?", question.Text)
}

func TestNormalizeCallback(t *testing.T) {
	msg := NormalizeCallback(&tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 42}},
		Data:    "use:c1",
	})

	assert.Equal(t, "cb", msg.CallbackID)
	assert.Equal(t, "use:c1", msg.CallbackData)
	assert.Equal(t, int64(42), msg.ChatID)
}
