package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Lookup errors; core mutations treat these as no-ops
	ErrConversationNotFound = errors.New("conversation not found")
	ErrFileNotFound         = errors.New("file not found")

	// File errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTotalSizeTooLarge = errors.New("total upload size too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrInvalidExtension  = errors.New("invalid file extension")

	// Index build errors
	ErrNoFiles         = errors.New("conversation has no uploaded files")
	ErrUploadsPending  = errors.New("file uploads are still in progress")
	ErrBuildInProgress = errors.New("index build already in progress")
	ErrIndexStale      = errors.New("file set changed while the index was building")

	// Query errors
	ErrEmptyQuestion = errors.New("question is empty")
	ErrIndexNotReady = errors.New("retrieval index is not ready")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// UploadError wraps a failed upload of a single file.
type UploadError struct {
	ConversationID string
	FileName       string
	Err            error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q to conversation %s: %v", e.FileName, e.ConversationID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError wraps a failed remote file deletion. The file is kept locally.
type DeleteError struct {
	ConversationID string
	FileID         string
	Err            error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete file %s from conversation %s: %v", e.FileID, e.ConversationID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// BuildError wraps a failed index build. Status is back to not built.
type BuildError struct {
	ConversationID string
	Err            error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build index for conversation %s: %v", e.ConversationID, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// QueryError wraps a failed query. It is turned into an assistant message
// and is only exposed through Exchange.Failed and logs.
type QueryError struct {
	ConversationID string
	Err            error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query conversation %s: %v", e.ConversationID, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
