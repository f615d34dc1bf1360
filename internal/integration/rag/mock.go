package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/idgen"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector is an in-process stand-in for the RAG service, used when
// ENABLE_MOCKS is set.
type MockConnector struct {
	mu     sync.Mutex
	files  map[string]map[string]entity.RAGFileInfo
	ready  map[string]bool
	ids    idgen.Generator
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		files:  make(map[string]map[string]entity.RAGFileInfo),
		ready:  make(map[string]bool),
		ids:    idgen.Short{},
		logger: logger,
	}
}

func (m *MockConnector) UploadFile(ctx context.Context, conversationID string, file *entity.FileUpload) (*entity.RAGFileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := entity.RAGFileInfo{
		ID:     m.ids.NewID(),
		Name:   file.Name,
		Type:   string(entity.KindFromFilename(file.Name)),
		Size:   entity.MegabytesFromBytes(int64(len(file.Content))),
		Status: string(entity.FileStatusCompleted),
	}
	if m.files[conversationID] == nil {
		m.files[conversationID] = make(map[string]entity.RAGFileInfo)
	}
	m.files[conversationID][info.ID] = info
	m.ready[conversationID] = false

	ctxzap.Info(ctx, "[MOCK] file uploaded", zap.String("file_id", info.ID), zap.String("file_name", file.Name))
	return &info, nil
}

func (m *MockConnector) DeleteFile(ctx context.Context, conversationID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[conversationID][fileID]; !ok {
		return fmt.Errorf("mock: file %s not found", fileID)
	}
	delete(m.files[conversationID], fileID)
	m.ready[conversationID] = false

	ctxzap.Info(ctx, "[MOCK] file deleted", zap.String("file_id", fileID))
	return nil
}

func (m *MockConnector) BuildIndex(ctx context.Context, conversationID string) (*entity.RAGBuildResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.files[conversationID])
	if n == 0 {
		return &entity.RAGBuildResponse{Success: false, Message: "no files uploaded"}, nil
	}
	m.ready[conversationID] = true

	ctxzap.Info(ctx, "[MOCK] index built", zap.Int("processed_files", n))
	return &entity.RAGBuildResponse{Success: true, Message: "index built", ProcessedFiles: n}, nil
}

func (m *MockConnector) Query(ctx context.Context, conversationID, question string) (*entity.RAGQueryResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready[conversationID] {
		return nil, fmt.Errorf("mock: index for %s is not built", conversationID)
	}

	answer := fmt.Sprintf("**Mock answer** to _%s_ based on %d file(s).", question, len(m.files[conversationID]))
	resp := &entity.RAGQueryResponse{Answer: &answer}
	for _, f := range m.files[conversationID] {
		if f.Type == string(entity.FileKindVideo) {
			resp.VideoSources = append(resp.VideoSources, entity.VideoSource{Time: "00:42", Text: "excerpt from " + f.Name})
		}
	}

	ctxzap.Info(ctx, "[MOCK] query answered")
	return resp, nil
}

func (m *MockConnector) Status(_ context.Context, conversationID string) (*entity.RAGStatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp := &entity.RAGStatusResponse{
		ConversationID: conversationID,
		FilesCount:     len(m.files[conversationID]),
		RagReady:       m.ready[conversationID],
	}
	for _, f := range m.files[conversationID] {
		resp.Files = append(resp.Files, f)
	}
	return resp, nil
}
