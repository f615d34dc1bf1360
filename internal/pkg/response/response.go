package response

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes a JSON response
func JSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are gone, nothing left but to log
			ctxzap.Extract(ctx).Error("failed to encode response", zap.Error(err))
		}
	}
}

// Error writes an error response with the status text as error code
func Error(ctx context.Context, w http.ResponseWriter, status int, message string) {
	JSON(ctx, w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func Success(ctx context.Context, w http.ResponseWriter, data any) {
	JSON(ctx, w, http.StatusOK, data)
}

func Created(ctx context.Context, w http.ResponseWriter, data any) {
	JSON(ctx, w, http.StatusCreated, data)
}

func Accepted(ctx context.Context, w http.ResponseWriter, data any) {
	JSON(ctx, w, http.StatusAccepted, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Attachment writes content as a downloadable file
func Attachment(ctx context.Context, w http.ResponseWriter, filename, contentType string, content []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		ctxzap.Extract(ctx).Warn("failed to write attachment", zap.Error(err))
	}
}
