package conversation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const placeholderPrefix = "pending-"

var errEmptyRemoteFileID = errors.New("remote service returned an empty file id")

// AddFiles uploads files to the conversation. Each file is first recorded as
// uploading and then either completed with its remote id or dropped. One
// failed upload does not stop the others: completed records are returned in
// completion order and failures are combined into the error, one
// *entity.UploadError per file (see multierr.Errors).
func (s *Store) AddFiles(ctx context.Context, convID string, files []entity.FileUpload) ([]entity.FileRecord, error) {
	ctx = logger.WithAction(logger.WithConversation(ctx, convID), "add_files")
	log := ctxzap.Extract(ctx)

	if s.validator != nil {
		if err := s.validator.ValidateUploads(files); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, nil
	}

	placeholders := make([]entity.FileRecord, len(files))
	for i := range files {
		if files[i].Kind == "" {
			files[i].Kind = entity.KindFromFilename(files[i].Name)
		}
		placeholders[i] = entity.FileRecord{
			ID:     placeholderPrefix + s.ids.NewID(),
			Name:   files[i].Name,
			Size:   entity.MegabytesFromBytes(files[i].SizeBytes),
			Kind:   files[i].Kind,
			Status: entity.FileStatusUploading,
		}
	}

	_, ok, err := s.update(ctx, convID, func(c *entity.Conversation) {
		c.Files = append(c.Files, placeholders...)
		c.InvalidateRetrieval()
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("add files to unknown conversation ignored")
		return nil, nil
	}

	var (
		mu        sync.Mutex
		completed []entity.FileRecord
		errs      error
	)

	g := new(errgroup.Group)
	g.SetLimit(s.uploadConcurrency)

	for i := range files {
		file := &files[i]
		placeholder := placeholders[i]

		g.Go(func() error {
			rec, err := s.uploadOne(ctx, convID, file, placeholder)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return nil
			}
			completed = append(completed, rec)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("files uploaded",
		zap.Int("completed", len(completed)),
		zap.Int("failed", len(multierr.Errors(errs))),
	)
	return completed, errs
}

// uploadOne calls the remote service and merges the outcome into the latest
// snapshot of the conversation.
func (s *Store) uploadOne(ctx context.Context, convID string, file *entity.FileUpload, placeholder entity.FileRecord) (entity.FileRecord, error) {
	log := ctxzap.Extract(ctx).With(zap.String("file_name", file.Name))
	// The outcome is merged even if the caller went away, otherwise the
	// placeholder would stay uploading.
	mergeCtx := context.WithoutCancel(ctx)

	info, err := s.remote.UploadFile(ctx, convID, file)
	if err == nil && info.ID == "" {
		err = errEmptyRemoteFileID
	}

	if err != nil {
		log.Error("upload failed", zap.Error(err))
		_, _, mergeErr := s.update(mergeCtx, convID, func(c *entity.Conversation) {
			if idx := c.FileIndex(placeholder.ID); idx >= 0 {
				c.Files = slices.Delete(c.Files, idx, idx+1)
				c.InvalidateRetrieval()
			}
		})
		return entity.FileRecord{}, &entity.UploadError{
			ConversationID: convID,
			FileName:       file.Name,
			Err:            multierr.Append(err, mergeErr),
		}
	}

	rec := entity.FileRecord{
		ID:     info.ID,
		Name:   file.Name,
		Size:   placeholder.Size,
		Kind:   file.Kind,
		Status: entity.FileStatusCompleted,
	}
	if info.Name != "" {
		rec.Name = info.Name
	}
	if info.Size > 0 {
		rec.Size = info.Size
	}

	merged := false
	_, ok, err := s.update(mergeCtx, convID, func(c *entity.Conversation) {
		if idx := c.FileIndex(placeholder.ID); idx >= 0 {
			c.Files[idx] = rec
			c.InvalidateRetrieval()
			merged = true
		}
	})
	if err != nil {
		return entity.FileRecord{}, &entity.UploadError{ConversationID: convID, FileName: file.Name, Err: err}
	}
	if !ok || !merged {
		// The conversation was deleted while the upload was in flight.
		log.Warn("uploaded file has no conversation to attach to", zap.String("file_id", rec.ID))
	}

	log.Debug("file uploaded", zap.String("file_id", rec.ID))
	return rec, nil
}

// RemoveFile deletes the file remotely and drops it locally only after the
// remote service confirmed. Failed uploads are dropped without a remote call.
func (s *Store) RemoveFile(ctx context.Context, convID, fileID string) error {
	ctx = logger.WithAction(logger.WithConversation(ctx, convID), "remove_file")
	log := ctxzap.Extract(ctx).With(zap.String("file_id", fileID))

	conv, ok := s.Get(convID)
	if !ok {
		log.Warn("remove file from unknown conversation ignored")
		return nil
	}
	idx := conv.FileIndex(fileID)
	if idx < 0 {
		log.Warn("remove unknown file ignored")
		return nil
	}

	switch conv.Files[idx].Status {
	case entity.FileStatusUploading:
		return entity.ErrUploadsPending
	case entity.FileStatusCompleted:
		if err := s.remote.DeleteFile(ctx, convID, fileID); err != nil {
			log.Error("remote delete failed, file kept", zap.Error(err))
			return &entity.DeleteError{ConversationID: convID, FileID: fileID, Err: err}
		}
	}

	_, _, err := s.update(ctx, convID, func(c *entity.Conversation) {
		if i := c.FileIndex(fileID); i >= 0 {
			c.Files = slices.Delete(c.Files, i, i+1)
			c.InvalidateRetrieval()
		}
	})
	if err != nil {
		return err
	}

	log.Info("file removed")
	return nil
}
