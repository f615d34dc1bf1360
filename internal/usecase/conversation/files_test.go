package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestFileLifecycle_Scenario(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)

	added, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("docA.pdf")})
	require.NoError(t, err)
	require.Len(t, added, 1)

	got, _ := fx.store.Get(conv.ID)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "docA.pdf", got.Files[0].Name)
	assert.Equal(t, added[0].ID, got.Files[0].ID)
	assert.Equal(t, entity.FileStatusCompleted, got.Files[0].Status)
	assert.Equal(t, 2.0, got.Files[0].Size)
	assert.Equal(t, entity.FileKindDocument, got.Files[0].Kind)
	assert.False(t, got.RagReady)

	require.NoError(t, fx.store.Build(ctx, conv.ID))
	got, _ = fx.store.Get(conv.ID)
	assert.True(t, got.RagReady)

	require.NoError(t, fx.store.RemoveFile(ctx, conv.ID, added[0].ID))
	got, _ = fx.store.Get(conv.ID)
	assert.False(t, got.RagReady)
	assert.Empty(t, got.Files)
	assert.Equal(t, []string{added[0].ID}, fx.remote.deletes)
}

func TestAddFiles_InvalidatesReadiness(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)

	_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("lecture.mp4")})
	require.NoError(t, err)

	got, _ := fx.store.Get(conv.ID)
	assert.False(t, got.RagReady)
	assert.Equal(t, entity.RagStatusNotBuilt, fx.store.BuildStatus(conv.ID))
	assert.Equal(t, entity.FileKindVideo, got.Files[1].Kind)
}

func TestAddFiles_PartialFailureSkipsAndReports(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)
	fx.remote.uploadErr["bad.pdf"] = errRemoteDown

	added, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("good.pdf"), doc("bad.pdf"), doc("fine.txt")})

	require.Error(t, err)
	assert.Len(t, added, 2)

	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	var uploadErr *entity.UploadError
	require.ErrorAs(t, errs[0], &uploadErr)
	assert.Equal(t, "bad.pdf", uploadErr.FileName)
	assert.Equal(t, conv.ID, uploadErr.ConversationID)
	assert.ErrorIs(t, err, errRemoteDown)

	got, _ := fx.store.Get(conv.ID)
	names := make([]string, 0, len(got.Files))
	for _, f := range got.Files {
		assert.Equal(t, entity.FileStatusCompleted, f.Status)
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"good.pdf", "fine.txt"}, names)
	assert.False(t, got.RagReady)
}

func TestAddFiles_PlaceholderVisibleWhileUploading(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)
	gate := fx.remote.gateUpload("slow.pdf")

	done := make(chan error, 1)
	go func() {
		_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("slow.pdf")})
		done <- err
	}()

	waitFor(t, func() bool {
		c, _ := fx.store.Get(conv.ID)
		return len(c.Files) == 1
	})
	got, _ := fx.store.Get(conv.ID)
	assert.Equal(t, entity.FileStatusUploading, got.Files[0].Status)
	assert.ErrorIs(t, fx.store.Build(ctx, conv.ID), entity.ErrUploadsPending)
	assert.ErrorIs(t, fx.store.RemoveFile(ctx, conv.ID, got.Files[0].ID), entity.ErrUploadsPending)

	close(gate)
	require.NoError(t, <-done)

	got, _ = fx.store.Get(conv.ID)
	require.Len(t, got.Files, 1)
	assert.Equal(t, entity.FileStatusCompleted, got.Files[0].Status)
	assert.Equal(t, "remote-1", got.Files[0].ID)
}

func TestAddFiles_ConcurrentUploadsDoNotLoseUpdates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)
	gateA := fx.remote.gateUpload("a.pdf")
	gateB := fx.remote.gateUpload("b.pdf")

	errs := make(chan error, 2)
	go func() {
		_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("a.pdf")})
		errs <- err
	}()
	go func() {
		_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("b.pdf")})
		errs <- err
	}()

	waitFor(t, func() bool {
		c, _ := fx.store.Get(conv.ID)
		return len(c.Files) == 2
	})

	// finish in the opposite order of the snapshots they started from
	close(gateB)
	require.NoError(t, <-errs)
	close(gateA)
	require.NoError(t, <-errs)

	got, _ := fx.store.Get(conv.ID)
	require.Len(t, got.Files, 2)
	for _, f := range got.Files {
		assert.Equal(t, entity.FileStatusCompleted, f.Status)
	}
}

func TestAddFiles_ValidationRejectsBatch(t *testing.T) {
	fx := newFixture(t)
	fx.store.validator = validator.NewFileValidator(config.FileUploadConfig{MaxFileSize: 1024, MaxFileCount: 5})
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)

	_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("a.exe")})

	assert.ErrorIs(t, err, entity.ErrInvalidExtension)
	assert.Empty(t, fx.remote.uploads)
	got, _ := fx.store.Get(conv.ID)
	assert.Empty(t, got.Files)
}

func TestAddFiles_UnknownConversationIsNoop(t *testing.T) {
	fx := newFixture(t)

	added, err := fx.store.AddFiles(context.Background(), "missing", []entity.FileUpload{doc("a.pdf")})

	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, fx.remote.uploads)
}

func TestRemoveFile_RemoteFailureKeepsFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)
	fx.remote.deleteErr = errRemoteDown

	err := fx.store.RemoveFile(ctx, conv.ID, conv.Files[0].ID)

	var deleteErr *entity.DeleteError
	require.ErrorAs(t, err, &deleteErr)
	assert.Equal(t, conv.Files[0].ID, deleteErr.FileID)
	assert.True(t, errors.Is(err, errRemoteDown))

	got, _ := fx.store.Get(conv.ID)
	assert.Len(t, got.Files, 1)
	assert.True(t, got.RagReady, "a failed delete changes nothing")
}

func TestRemoveFile_FailedRecordSkipsRemote(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)
	_, _, err := fx.store.update(ctx, conv.ID, func(c *entity.Conversation) {
		c.Files = append(c.Files, entity.FileRecord{ID: "pending-x", Name: "a.pdf", Status: entity.FileStatusFailed})
	})
	require.NoError(t, err)

	require.NoError(t, fx.store.RemoveFile(ctx, conv.ID, "pending-x"))

	got, _ := fx.store.Get(conv.ID)
	assert.Empty(t, got.Files)
	assert.Empty(t, fx.remote.deletes)
}

func TestRemoveFile_UnknownIdsAreNoops(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv := fx.readyConversation(t)

	require.NoError(t, fx.store.RemoveFile(ctx, "missing", "f"))
	require.NoError(t, fx.store.RemoveFile(ctx, conv.ID, "missing"))

	got, _ := fx.store.Get(conv.ID)
	assert.True(t, got.RagReady)
	assert.Empty(t, fx.remote.deletes)
}

func TestFileMutations_AlwaysInvalidate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.store.Create(ctx)
	_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("a.pdf")})
	require.NoError(t, err)

	steps := []func() error{
		func() error { _, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("b.pdf")}); return err },
		func() error { c, _ := fx.store.Get(conv.ID); return fx.store.RemoveFile(ctx, conv.ID, c.Files[0].ID) },
		func() error { _, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("c.mov")}); return err },
		func() error { c, _ := fx.store.Get(conv.ID); return fx.store.RemoveFile(ctx, conv.ID, c.Files[len(c.Files)-1].ID) },
	}

	for i, step := range steps {
		require.NoError(t, fx.store.Build(ctx, conv.ID), "build before step %d", i)
		require.NoError(t, step())

		got, _ := fx.store.Get(conv.ID)
		assert.False(t, got.RagReady, "ready after step %d", i)
	}
}

func TestAddFiles_CallerCancelledDuringUpload(t *testing.T) {
	fx := newCtxFixture(t)
	conv, err := fx.store.Create(context.Background())
	require.NoError(t, err)
	gate := fx.remote.gateUpload("slow.pdf")
	defer close(gate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("slow.pdf")})
		done <- err
	}()

	waitFor(t, func() bool {
		c, _ := fx.store.Get(conv.ID)
		return len(c.Files) == 1
	})
	cancel()

	err = <-done
	var uploadErr *entity.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "save conversations")

	got, _ := fx.store.Get(conv.ID)
	assert.Empty(t, got.Files)
	assert.ErrorIs(t, fx.store.Build(context.Background(), conv.ID), entity.ErrNoFiles)

	reopened := openStore(t, fx.kv, fx.remote)
	persisted, _ := reopened.Get(conv.ID)
	assert.Empty(t, persisted.Files)
}

func TestAddFiles_CallerCancelledAfterRemoteAccepted(t *testing.T) {
	fx := newCtxFixture(t)
	conv, err := fx.store.Create(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	fx.remote.afterUpload = cancel

	recs, err := fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("a.pdf")})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	got, _ := fx.store.Get(conv.ID)
	require.Len(t, got.Files, 1)
	assert.Equal(t, entity.FileStatusCompleted, got.Files[0].Status)
	assert.Equal(t, "remote-1", got.Files[0].ID)
	require.NoError(t, fx.store.Build(context.Background(), conv.ID))

	reopened := openStore(t, fx.kv, fx.remote)
	persisted, _ := reopened.Get(conv.ID)
	require.Len(t, persisted.Files, 1)
	assert.Equal(t, entity.FileStatusCompleted, persisted.Files[0].Status)
}
