package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/futig/rag-conversations/internal/pkg/response"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   ConversationUsecase
	cfg       config.FileUploadConfig
	validator *validator.Validator
}

func NewHandler(
	usecase ConversationUsecase,
	cfg config.FileUploadConfig,
	validator *validator.Validator,
) *Handler {
	return &Handler{
		usecase:   usecase,
		cfg:       cfg,
		validator: validator,
	}
}

func (h *Handler) activeID() string {
	if c, ok := h.usecase.Active(); ok {
		return c.ID
	}
	return ""
}

// conversation resolves {conversation_id} and answers 404 for unknown ids.
func (h *Handler) conversation(w http.ResponseWriter, r *http.Request, action string) (context.Context, entity.Conversation, bool) {
	id := chi.URLParam(r, "conversation_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("conversation_id", id),
		zap.String("action", action),
	)

	conv, ok := h.usecase.Get(id)
	if !ok {
		h.respondError(ctx, w, http.StatusNotFound, "conversation not found", entity.ErrConversationNotFound)
		return ctx, entity.Conversation{}, false
	}
	return ctx, conv, true
}

// ListConversations handles GET /conversations
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListConversations")

	list := h.usecase.List()
	activeID := h.activeID()

	summaries := make([]*entity.ConversationSummary, 0, len(list))
	for _, c := range list {
		summaries = append(summaries, toSummary(c, h.usecase.BuildStatus(c.ID), activeID))
	}

	ctxzap.Debug(ctx, "conversations listed", zap.Int("count", len(summaries)))
	response.Success(ctx, w, &entity.ListConversationsResponse{Conversations: summaries})
}

// CreateConversation handles POST /conversations
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateConversation")

	conv, err := h.usecase.Create(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(ctx, w, toDetail(conv, entity.RagStatusNotBuilt, conv.ID))
}

// GetConversation handles GET /conversations/{conversation_id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "GetConversation")
	if !ok {
		return
	}

	response.Success(ctx, w, toDetail(conv, h.usecase.BuildStatus(conv.ID), h.activeID()))
}

// RenameConversation handles PATCH /conversations/{conversation_id}
func (h *Handler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "RenameConversation")
	if !ok {
		return
	}

	var req entity.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validator.ValidateTitle(req.Title); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	renamed, found, err := h.usecase.Rename(ctx, conv.ID, req.Title)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if !found {
		h.handleUsecaseError(ctx, w, entity.ErrConversationNotFound)
		return
	}

	response.Success(ctx, w, toDetail(renamed, h.usecase.BuildStatus(renamed.ID), h.activeID()))
}

// DeleteConversation handles DELETE /conversations/{conversation_id}.
// Deleting an unknown id succeeds.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("conversation_id", id),
		zap.String("action", "DeleteConversation"),
	)

	if err := h.usecase.Delete(ctx, id); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// SelectConversation handles POST /conversations/{conversation_id}/select
func (h *Handler) SelectConversation(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "SelectConversation")
	if !ok {
		return
	}

	if err := h.usecase.Select(ctx, conv.ID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(ctx, w, toDetail(conv, h.usecase.BuildStatus(conv.ID), conv.ID))
}

// AddFiles handles POST /conversations/{conversation_id}/files with
// multipart field "files". Partial failures answer 200 with the errors listed.
func (h *Handler) AddFiles(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "AddFiles")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "at least one file is required", nil)
		return
	}

	uploads := make([]entity.FileUpload, 0, len(headers))
	for _, fh := range headers {
		upload, err := readUpload(fh)
		if err != nil {
			h.respondError(ctx, w, http.StatusBadRequest, "failed to read uploaded file", err)
			return
		}
		uploads = append(uploads, upload)
	}

	ctxzap.Info(ctx, "adding files", zap.Int("file_count", len(uploads)))

	records, err := h.usecase.AddFiles(ctx, conv.ID, uploads)
	if err != nil && len(records) == 0 {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	resp := &entity.AddFilesResponse{Files: make([]*entity.FileDetail, 0, len(records))}
	for _, rec := range records {
		resp.Files = append(resp.Files, toFileDetail(rec))
	}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}

	response.Success(ctx, w, resp)
}

func readUpload(fh *multipart.FileHeader) (entity.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.FileUpload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return entity.FileUpload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	name := validator.SanitizeFilename(fh.Filename)
	return entity.FileUpload{
		Name:      name,
		SizeBytes: fh.Size,
		Kind:      entity.KindFromFilename(name),
		Content:   content,
	}, nil
}

// RemoveFile handles DELETE /conversations/{conversation_id}/files/{file_id}
func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "RemoveFile")
	if !ok {
		return
	}

	fileID := chi.URLParam(r, "file_id")
	ctx = logger.AddFields(ctx, zap.String("file_id", fileID))

	if conv.FileIndex(fileID) < 0 {
		h.respondError(ctx, w, http.StatusNotFound, "file not found", entity.ErrFileNotFound)
		return
	}

	if err := h.usecase.RemoveFile(ctx, conv.ID, fileID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// BuildIndex handles POST /conversations/{conversation_id}/build. The build
// continues after the response; poll GET .../status for the outcome.
func (h *Handler) BuildIndex(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "BuildIndex")
	if !ok {
		return
	}

	bgCtx := ctxzap.ToContext(context.Background(), ctxzap.Extract(ctx))
	done, err := h.usecase.BuildAsync(bgCtx, conv.ID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	go func() {
		if err := <-done; err != nil {
			ctxzap.Error(bgCtx, "background index build failed", zap.Error(err))
		}
	}()

	response.Accepted(ctx, w, &entity.BuildStatusResponse{
		ConversationID: conv.ID,
		Status:         h.usecase.BuildStatus(conv.ID),
	})
}

// GetStatus handles GET /conversations/{conversation_id}/status.
// ?refresh=true reconciles with the remote service first.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "GetStatus")
	if !ok {
		return
	}

	status := h.usecase.BuildStatus(conv.ID)
	if r.URL.Query().Get("refresh") == "true" {
		var err error
		status, err = h.usecase.RefreshStatus(ctx, conv.ID)
		if err != nil {
			ctxzap.Warn(ctx, "status refresh failed, answering with local status", zap.Error(err))
		}
	}

	response.Success(ctx, w, &entity.BuildStatusResponse{ConversationID: conv.ID, Status: status})
}

// ListMessages handles GET /conversations/{conversation_id}/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "ListMessages")
	if !ok {
		return
	}

	msgs, err := h.usecase.Messages(ctx, conv.ID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(ctx, w, &entity.ListMessagesResponse{Messages: msgs})
}

// Ask handles POST /conversations/{conversation_id}/messages. A failed
// remote query still answers 200 with the error message in the exchange.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "Ask")
	if !ok {
		return
	}

	var req entity.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	exchange, err := h.usecase.Ask(ctx, conv.ID, req.Question)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(ctx, w, exchange)
}

// Export handles GET /conversations/{conversation_id}/export?format=
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, conv, ok := h.conversation(w, r, "Export")
	if !ok {
		return
	}

	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(entity.FormatMarkdown)
	}
	format, err := entity.ParseExportFormat(raw)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	file, err := h.usecase.Export(ctx, conv.ID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Attachment(ctx, w, file.Filename, file.ContentType, file.Content)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	log := ctxzap.Extract(ctx)
	if status >= http.StatusInternalServerError {
		log.Error(message, zap.Error(err))
	} else {
		log.Warn(message, zap.Error(err))
	}
	response.Error(ctx, w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		uploadErr *entity.UploadError
		deleteErr *entity.DeleteError
		buildErr  *entity.BuildError
	)

	switch {
	case errors.Is(err, entity.ErrConversationNotFound), errors.Is(err, entity.ErrFileNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrBuildInProgress), errors.Is(err, entity.ErrUploadsPending), errors.Is(err, entity.ErrIndexStale):
		h.respondError(ctx, w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, entity.ErrEmptyQuestion), errors.Is(err, entity.ErrIndexNotReady), errors.Is(err, entity.ErrNoFiles):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, entity.ErrInvalidParameter), errors.Is(err, entity.ErrMissingField):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter: "+err.Error(), err)
	case errors.Is(err, entity.ErrInvalidFile), errors.Is(err, entity.ErrFileTooLarge), errors.Is(err, entity.ErrTooManyFiles),
		errors.Is(err, entity.ErrInvalidExtension), errors.Is(err, entity.ErrTotalSizeTooLarge):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file: "+err.Error(), err)
	case errors.As(err, &uploadErr), errors.As(err, &deleteErr), errors.As(err, &buildErr):
		h.respondError(ctx, w, http.StatusBadGateway, "RAG service request failed", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
