package conversation

import (
	"context"
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/validator"
)

// Export renders the conversation transcript. Unlike mutations, it reports
// unknown ids with entity.ErrConversationNotFound since there is nothing to render.
func (s *Store) Export(ctx context.Context, convID string, format entity.ExportFormat) (*entity.ExportedFile, error) {
	conv, ok := s.Get(convID)
	if !ok {
		return nil, entity.ErrConversationNotFound
	}

	f, err := s.formatters.Create(format)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.Load(ctx, convID)
	if err != nil {
		return nil, err
	}

	content, err := f.Format(&entity.Transcript{
		Title:      conv.Title,
		ExportedAt: s.timestamp(),
		Files:      conv.Files,
		Messages:   msgs,
	})
	if err != nil {
		return nil, fmt.Errorf("format transcript: %w", err)
	}

	return &entity.ExportedFile{
		Filename:    validator.SanitizeFilename(conv.Title) + f.FileExtension(),
		ContentType: f.ContentType(),
		Content:     content,
	}, nil
}
