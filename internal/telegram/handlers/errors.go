package handlers

import (
	"context"
	"errors"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// userErrors are caused by what the user asked for, not by a failure.
var userErrors = []error{
	entity.ErrIndexNotReady,
	entity.ErrEmptyQuestion,
	entity.ErrNoFiles,
	entity.ErrBuildInProgress,
	entity.ErrUploadsPending,
	entity.ErrIndexStale,
	entity.ErrInvalidFile,
	entity.ErrInvalidExtension,
	entity.ErrFileTooLarge,
	entity.ErrTooManyFiles,
	entity.ErrTotalSizeTooLarge,
	entity.ErrMissingField,
}

func severityOf(err error) ErrorSeverity {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return SeverityWarning
		}
	}
	return SeverityError
}

// HandleError logs err with its severity and tells the user what happened.
func (h *Handler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	switch severityOf(err) {
	case SeverityWarning:
		ctxzap.Warn(ctx, "request rejected", zap.Error(err), zap.Int64("chat_id", chatID))
	default:
		ctxzap.Error(ctx, "handler error", zap.Error(err), zap.Int64("chat_id", chatID))
	}

	_ = h.sender.Send(chatID, render.ClassifyError(err), nil)
}
