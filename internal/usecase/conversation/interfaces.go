package conversation

import (
	"context"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/formatter"
)

// RagConnector is the remote service that stores files, builds the
// retrieval index and answers questions.
type RagConnector interface {
	UploadFile(ctx context.Context, conversationID string, file *entity.FileUpload) (*entity.RAGFileInfo, error)
	DeleteFile(ctx context.Context, conversationID, fileID string) error
	BuildIndex(ctx context.Context, conversationID string) (*entity.RAGBuildResponse, error)
	Query(ctx context.Context, conversationID, question string) (*entity.RAGQueryResponse, error)
	Status(ctx context.Context, conversationID string) (*entity.RAGStatusResponse, error)
}

type FileValidator interface {
	ValidateUploads(files []entity.FileUpload) error
}

type FormatterFactory interface {
	Create(format entity.ExportFormat) (formatter.Formatter, error)
}
