package keyboard

import (
	"testing"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	data, err := ParseCallback(EncodeCallback(ActionUse, "0190a1b2-c3d4"))
	require.NoError(t, err)
	assert.Equal(t, ActionUse, data.Action)
	assert.Equal(t, "0190a1b2-c3d4", data.Value)

	data, err = ParseCallback("export:pdf")
	require.NoError(t, err)
	assert.Equal(t, ActionExport, data.Action)

	_, err = ParseCallback("garbage")
	assert.Error(t, err)
	_, err = ParseCallback(":value")
	assert.Error(t, err)
}

func TestConversationsKeyboard(t *testing.T) {
	list := make([]entity.Conversation, 12)
	for i := range list {
		list[i] = entity.Conversation{ID: string(rune('a' + i)), Title: "Chat"}
	}

	kb := NewBuilder().ConversationsKeyboard(list, "b")

	require.Len(t, kb.InlineKeyboard, maxListButtons)
	assert.Equal(t, "1. Chat", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "▶️ 2. Chat", kb.InlineKeyboard[1][0].Text)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "use:b", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestDeleteConfirmKeyboard(t *testing.T) {
	kb := NewBuilder().DeleteConfirmKeyboard("c1")

	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "del:c1", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "keep:c1", *kb.InlineKeyboard[0][1].CallbackData)
}
