package handlers

import (
	"context"

	"github.com/futig/rag-conversations/internal/entity"
	pkghttp "github.com/futig/rag-conversations/pkg/http"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ConversationUsecase is the part of the conversation store the bot drives.
type ConversationUsecase interface {
	Create(ctx context.Context) (entity.Conversation, error)
	Select(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(id string) (entity.Conversation, bool)
	List() []entity.Conversation
	Active() (entity.Conversation, bool)

	AddFiles(ctx context.Context, convID string, files []entity.FileUpload) ([]entity.FileRecord, error)
	RemoveFile(ctx context.Context, convID, fileID string) error

	BuildAsync(ctx context.Context, convID string) (<-chan error, error)
	BuildStatus(convID string) entity.RagStatus
	RefreshStatus(ctx context.Context, convID string) (entity.RagStatus, error)

	Ask(ctx context.Context, convID, question string) (entity.Exchange, error)
	Export(ctx context.Context, convID string, format entity.ExportFormat) (*entity.ExportedFile, error)
}

// BotAPI is the subset of *tgbotapi.BotAPI used by handlers.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// FileDownloader fetches files that users send to the bot.
type FileDownloader interface {
	Download(ctx context.Context, endpoint string, opts ...pkghttp.RequestOpt) ([]byte, error)
}

var (
	_ BotAPI         = &tgbotapi.BotAPI{}
	_ FileDownloader = &pkghttp.Connector{}
)
