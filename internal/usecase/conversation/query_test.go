package conversation

import (
	"context"
	"testing"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk_ZeroFilesIsRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)

	_, err := fx.store.Ask(ctx, conv.ID, "hi")

	assert.ErrorIs(t, err, entity.ErrIndexNotReady)
	msgs, _ := fx.store.Messages(ctx, conv.ID)
	assert.Empty(t, msgs)
	assert.Zero(t, fx.remote.queries.Load())
}

func TestAsk_EmptyQuestionIsRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := fx.store.Ask(ctx, conv.ID, q)
		assert.ErrorIs(t, err, entity.ErrEmptyQuestion)
	}

	msgs, _ := fx.store.Messages(ctx, conv.ID)
	assert.Empty(t, msgs)
	assert.Zero(t, fx.remote.queries.Load())
}

func TestAsk_Success(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)
	answer := "X is Y"
	fx.remote.queryResp = &entity.RAGQueryResponse{
		Answer:       &answer,
		VideoSources: []entity.VideoSource{{Time: "00:01:00", Text: "clip"}},
	}

	ex, err := fx.store.Ask(ctx, conv.ID, "What is X?")
	require.NoError(t, err)
	assert.False(t, ex.Failed)

	msgs, err := fx.store.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is X?", msgs[0].Content)

	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "X is Y", msgs[1].Content)
	assert.Equal(t, []entity.VideoSource{{Time: "00:01:00", Text: "clip"}}, msgs[1].VideoSources)
	assert.Empty(t, msgs[1].Images)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}

func TestAsk_MissingAnswerFallsBack(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)
	fx.remote.queryResp = &entity.RAGQueryResponse{Images: []string{"aW1n"}}

	ex, err := fx.store.Ask(ctx, conv.ID, "anything?")
	require.NoError(t, err)

	assert.Equal(t, NoAnswerText, ex.Answer.Content)
	assert.Equal(t, []string{"aW1n"}, ex.Answer.Images)
	assert.NotNil(t, ex.Answer.VideoSources)
}

func TestAsk_FailureAppendsErrorMessage(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)
	fx.remote.queryErr = errRemoteDown

	ex, err := fx.store.Ask(ctx, conv.ID, "...")
	require.NoError(t, err)
	assert.True(t, ex.Failed)

	msgs, err := fx.store.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, QueryErrorText, msgs[1].Content)
	assert.Empty(t, msgs[1].VideoSources)
	assert.Empty(t, msgs[1].Images)
}

func TestAsk_AppendsInOrderAcrossTurns(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)

	for _, q := range []string{"one", "two", "three"} {
		_, err := fx.store.Ask(ctx, conv.ID, q)
		require.NoError(t, err)
	}

	msgs, err := fx.store.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[2].Content)
	assert.Equal(t, "three", msgs[4].Content)
	assert.Equal(t, int32(3), fx.remote.queries.Load())
}

func TestAsk_UnknownConversationIsNoop(t *testing.T) {
	fx := newFixture(t)

	ex, err := fx.store.Ask(context.Background(), "missing", "hi")

	require.NoError(t, err)
	assert.Empty(t, ex.Question.ID)
	assert.Zero(t, fx.remote.queries.Load())
}

func TestAsk_CallerCancelledDuringQuery(t *testing.T) {
	fx := newCtxFixture(t)
	conv := fx.readyConversation(t)

	ctx, cancel := context.WithCancel(context.Background())
	fx.remote.onQuery = cancel

	ex, err := fx.store.Ask(ctx, conv.ID, "hello")
	require.NoError(t, err)
	assert.True(t, ex.Failed)
	assert.Equal(t, QueryErrorText, ex.Answer.Content)

	msgs, err := fx.store.Messages(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, QueryErrorText, msgs[1].Content)
	assert.Empty(t, msgs[1].VideoSources)
	assert.Empty(t, msgs[1].Images)
}

func TestAsk_RejectedAfterFilesChanged(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)

	_, err := fx.store.Ask(ctx, conv.ID, "first")
	require.NoError(t, err)
	queries := fx.remote.queries.Load()

	_, err = fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("b.pdf")})
	require.NoError(t, err)
	got, _ := fx.store.Get(conv.ID)
	require.False(t, got.RagReady)

	_, err = fx.store.Ask(ctx, conv.ID, "second")

	assert.ErrorIs(t, err, entity.ErrIndexNotReady)
	assert.Equal(t, queries, fx.remote.queries.Load())
	msgs, _ := fx.store.Messages(ctx, conv.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}
