package handlers

import (
	"context"
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/futig/rag-conversations/internal/telegram/render"
	pkghttp "github.com/futig/rag-conversations/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// attachment is the part of a Telegram document or video needed for upload.
type attachment struct {
	fileID string
	name   string
	size   int64
}

func attachmentOf(msg *Message) attachment {
	if msg.Document != nil {
		return attachment{
			fileID: msg.Document.FileID,
			name:   msg.Document.FileName,
			size:   int64(msg.Document.FileSize),
		}
	}

	name := msg.Video.FileName
	if name == "" {
		name = fmt.Sprintf("video_%d.mp4", msg.MessageID)
	}
	return attachment{
		fileID: msg.Video.FileID,
		name:   name,
		size:   int64(msg.Video.FileSize),
	}
}

// handleFile downloads the attachment from Telegram and uploads it to the
// active conversation.
func (h *Handler) handleFile(ctx context.Context, msg *Message) error {
	conv, ok := h.usecase.Active()
	if !ok {
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	att := attachmentOf(msg)
	name := validator.SanitizeFilename(att.name)
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.String("file_name", name)))

	upload := entity.FileUpload{
		Name:      name,
		SizeBytes: att.size,
		Kind:      entity.KindFromFilename(name),
	}
	// Reject by metadata first so oversized files are never downloaded.
	if h.validator != nil {
		if err := h.validator.ValidateUpload(upload); err != nil {
			return err
		}
	}

	if err := h.sender.Send(msg.ChatID, fmt.Sprintf(render.MsgUploading, name), nil); err != nil {
		ctxzap.Warn(ctx, "upload notice not delivered", zap.Error(err))
	}

	url, err := h.api.GetFileDirectURL(att.fileID)
	if err != nil {
		return fmt.Errorf("resolve telegram file: %w", err)
	}
	content, err := h.files.Download(ctx, "", pkghttp.WithURL(url))
	if err != nil {
		return fmt.Errorf("download telegram file: %w", err)
	}
	upload.Content = content
	upload.SizeBytes = int64(len(content))

	records, err := h.usecase.AddFiles(ctx, conv.ID, []entity.FileUpload{upload})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		// The conversation was deleted while the file was downloading.
		return h.sender.Send(msg.ChatID, render.ErrNoActive, nil)
	}

	rec := records[0]
	ctxzap.Info(ctx, "file attached", zap.String("file_id", rec.ID))
	return h.sender.Send(msg.ChatID, fmt.Sprintf(render.MsgUploaded, rec.Name, render.HumanSize(rec.Size)), nil)
}
