package conversation

import (
	"context"

	"github.com/futig/rag-conversations/internal/entity"
)

type ConversationUsecase interface {
	Create(ctx context.Context) (entity.Conversation, error)
	Select(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(id string) (entity.Conversation, bool)
	List() []entity.Conversation
	Active() (entity.Conversation, bool)
	Rename(ctx context.Context, id, title string) (entity.Conversation, bool, error)

	AddFiles(ctx context.Context, convID string, files []entity.FileUpload) ([]entity.FileRecord, error)
	RemoveFile(ctx context.Context, convID, fileID string) error

	BuildAsync(ctx context.Context, convID string) (<-chan error, error)
	BuildStatus(convID string) entity.RagStatus
	RefreshStatus(ctx context.Context, convID string) (entity.RagStatus, error)

	Ask(ctx context.Context, convID, question string) (entity.Exchange, error)
	Messages(ctx context.Context, convID string) ([]entity.Message, error)
	Export(ctx context.Context, convID string, format entity.ExportFormat) (*entity.ExportedFile, error)
}
