package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// UploadedDir is the subdirectory that receives files once they are attached.
const UploadedDir = "uploaded"

// Uploader is the part of the conversation store the watcher feeds.
type Uploader interface {
	Active() (entity.Conversation, bool)
	AddFiles(ctx context.Context, convID string, files []entity.FileUpload) ([]entity.FileRecord, error)
}

// Watcher uploads files dropped into a directory to the active conversation.
// A file is picked up once it has not changed for the settle period, then
// moved to UploadedDir. Files that fail stay in place for a later retry.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	settle    time.Duration
	uploader  Uploader
	validator *validator.Validator
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

func New(cfg config.WatchConfig, uploader Uploader, validator *validator.Validator, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = 2 * time.Second
	}

	return &Watcher{
		fsWatcher: fsw,
		dir:       cfg.Dir,
		settle:    settle,
		uploader:  uploader,
		validator: validator,
		logger:    logger.Named("watcher"),
		pending:   make(map[string]*time.Timer),
		ready:     make(chan string, 64),
	}, nil
}

// Run watches the directory until ctx is done. Files already present are
// queued on start.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()

	if err := os.MkdirAll(filepath.Join(w.dir, UploadedDir), 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ctx = ctxzap.ToContext(ctx, w.logger.With(zap.String("dir", w.dir)))
	ctxzap.Info(ctx, "watching drop folder", zap.Duration("settle", w.settle))

	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			ctxzap.Info(ctx, "drop folder watcher stopped")
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			ctxzap.Error(ctx, "watcher error", zap.Error(err))

		case path := <-w.ready:
			w.upload(ctx, path)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		ctxzap.Error(ctx, "failed to scan drop folder", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !ShouldProcess(event.Name) {
		return
	}

	ctxzap.Debug(ctx, "file changed",
		zap.String("file_path", event.Name),
		zap.String("event_type", event.Op.String()),
	)
	w.schedule(ctx, event.Name)
}

// schedule (re)starts the settle timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// ShouldProcess filters out hidden and editor temp files and extensions the
// upload would reject anyway.
func ShouldProcess(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") || strings.HasSuffix(base, ".part") {
		return false
	}
	return validator.AllowedExtensions[strings.ToLower(filepath.Ext(base))]
}

func (w *Watcher) upload(ctx context.Context, path string) {
	ctx = logger.AddFields(ctx, zap.String("file_path", path))
	log := ctxzap.Extract(ctx)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// Moved or deleted before it settled.
		return
	}

	conv, ok := w.uploader.Active()
	if !ok {
		log.Warn("no active conversation, file left in drop folder")
		return
	}
	ctx = logger.WithConversation(ctx, conv.ID)

	content, err := os.ReadFile(path)
	if err != nil {
		log.Error("failed to read file", zap.Error(err))
		return
	}

	name := validator.SanitizeFilename(path)
	upload := entity.FileUpload{
		Name:      name,
		SizeBytes: int64(len(content)),
		Kind:      entity.KindFromFilename(name),
		Content:   content,
	}
	if w.validator != nil {
		if err := w.validator.ValidateUpload(upload); err != nil {
			log.Warn("file rejected", zap.Error(err))
			return
		}
	}

	records, err := w.uploader.AddFiles(ctx, conv.ID, []entity.FileUpload{upload})
	if err != nil {
		log.Error("upload failed, file left in drop folder", zap.Error(err))
		return
	}
	if len(records) == 0 {
		log.Warn("conversation deleted during upload, file left in drop folder")
		return
	}

	target := filepath.Join(w.dir, UploadedDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		log.Error("file uploaded but could not be moved", zap.Error(err))
		return
	}

	ctxzap.Info(ctx, "file uploaded from drop folder", zap.String("file_id", records[0].ID))
}
