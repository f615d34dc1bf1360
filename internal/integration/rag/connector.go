package rag

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/integration/common"
	"github.com/futig/rag-conversations/internal/pkg/retry"
	pkghttp "github.com/futig/rag-conversations/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Connector struct {
	config    config.RAGConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.RAGConnectorConfig,
	logger *zap.Logger,
	opts ...pkghttp.HttpOpts,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger, opts...),
		config:    cfg,
		logger:    logger,
	}
}

func endpoint(template, conversationID, fileID string) string {
	return strings.NewReplacer(
		"{conversation_id}", url.PathEscape(conversationID),
		"{file_id}", url.PathEscape(fileID),
	).Replace(template)
}

func (c *Connector) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(ctx, c.config.Retry, fn, func(n uint, err error) {
		ctxzap.Warn(ctx, "retrying RAG request",
			zap.String("operation", op),
			zap.Uint("attempt", n+1),
			zap.Error(err),
		)
	})
}

// UploadFile stores one file for the conversation.
// POST {upload_endpoint} with multipart field "file"
func (c *Connector) UploadFile(ctx context.Context, conversationID string, file *entity.FileUpload) (*entity.RAGFileInfo, error) {
	path := endpoint(c.config.UploadEndpoint, conversationID, "")

	ctxzap.Debug(ctx, "uploading file to RAG service",
		zap.String("file_name", file.Name),
		zap.Int("size_bytes", len(file.Content)),
	)

	prepareBody := func(writer *multipart.Writer) error {
		part, err := writer.CreateFormFile("file", file.Name)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return fmt.Errorf("write file content: %w", err)
		}
		return nil
	}

	// Sent once: the service stores a new record per POST, so a retry after
	// a lost response would leave a duplicate behind.
	var resp entity.RAGUploadResponse
	err := c.connector.DoMultipartRequest(ctx, http.MethodPost, path, prepareBody, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("RAG service did not accept %q", file.Name)
	}

	return &resp.File, nil
}

// DeleteFile removes a stored file.
// DELETE {delete_endpoint}
func (c *Connector) DeleteFile(ctx context.Context, conversationID, fileID string) error {
	path := endpoint(c.config.DeleteEndpoint, conversationID, fileID)

	var resp entity.RAGDeleteFileResponse
	err := c.do(ctx, "delete", func() error {
		return c.connector.DoRequest(ctx, http.MethodDelete, path, nil, &resp)
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("RAG service refused to delete file %s", fileID)
	}

	ctxzap.Debug(ctx, "file deleted from RAG service", zap.String("file_id", fileID))
	return nil
}

// BuildIndex builds the retrieval index over the conversation's files.
// POST {build_endpoint}
func (c *Connector) BuildIndex(ctx context.Context, conversationID string) (*entity.RAGBuildResponse, error) {
	path := endpoint(c.config.BuildEndpoint, conversationID, "")

	var resp entity.RAGBuildResponse
	err := c.do(ctx, "build", func() error {
		return c.connector.DoRequest(ctx, http.MethodPost, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// Query asks a question against the built index.
// POST {query_endpoint} with {"query": ...}
func (c *Connector) Query(ctx context.Context, conversationID, question string) (*entity.RAGQueryResponse, error) {
	path := endpoint(c.config.QueryEndpoint, conversationID, "")

	var resp entity.RAGQueryResponse
	err := c.do(ctx, "query", func() error {
		return c.connector.DoRequest(ctx, http.MethodPost, path, &entity.RAGQueryRequest{Query: question}, &resp)
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// Status reports what the remote service holds for the conversation.
// GET {status_endpoint}
func (c *Connector) Status(ctx context.Context, conversationID string) (*entity.RAGStatusResponse, error) {
	path := endpoint(c.config.StatusEndpoint, conversationID, "")

	var resp entity.RAGStatusResponse
	err := c.do(ctx, "status", func() error {
		return c.connector.DoRequest(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}
