package conversation

import (
	"github.com/dustin/go-humanize"
	"github.com/futig/rag-conversations/internal/entity"
)

func toSummary(c entity.Conversation, status entity.RagStatus, activeID string) *entity.ConversationSummary {
	return &entity.ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		LastActivity: c.LastActivity,
		FileCount:    len(c.Files),
		RagStatus:    status,
		Active:       c.ID == activeID,
	}
}

func toDetail(c entity.Conversation, status entity.RagStatus, activeID string) *entity.ConversationDetail {
	files := make([]*entity.FileDetail, 0, len(c.Files))
	for _, f := range c.Files {
		files = append(files, toFileDetail(f))
	}

	return &entity.ConversationDetail{
		ID:           c.ID,
		Title:        c.Title,
		LastActivity: c.LastActivity,
		RagReady:     c.RagReady,
		RagStatus:    status,
		Active:       c.ID == activeID,
		Files:        files,
	}
}

func toFileDetail(f entity.FileRecord) *entity.FileDetail {
	return &entity.FileDetail{
		ID:        f.ID,
		Name:      f.Name,
		Size:      f.Size,
		SizeLabel: humanize.IBytes(uint64(f.Size * 1024 * 1024)),
		Kind:      f.Kind,
		Status:    f.Status,
	}
}
