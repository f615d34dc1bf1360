package conversation

import (
	"context"
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Build asks the remote service to index the conversation's files and waits
// for the outcome. At most one build per conversation is in flight; a second
// call gets ErrBuildInProgress. Readiness is set only if the file set did not
// change while the build was running.
func (s *Store) Build(ctx context.Context, convID string) error {
	done, err := s.BuildAsync(ctx, convID)
	if err != nil {
		return err
	}
	return <-done
}

// BuildAsync checks the preconditions synchronously and runs the remote build
// in the background. The returned channel yields the result exactly once.
// ctx must outlive the build; front ends pass a detached context.
func (s *Store) BuildAsync(ctx context.Context, convID string) (<-chan error, error) {
	ctx = logger.WithAction(logger.WithConversation(ctx, convID), "build_index")

	done := make(chan error, 1)
	revision, ok, err := s.startBuild(convID)
	if err != nil {
		return nil, err
	}
	if !ok {
		ctxzap.Extract(ctx).Warn("build for unknown conversation ignored")
		done <- nil
		return done, nil
	}

	go func() {
		done <- s.runBuild(ctx, convID, revision)
	}()
	return done, nil
}

func (s *Store) runBuild(ctx context.Context, convID string, revision int64) error {
	log := ctxzap.Extract(ctx)

	log.Info("index build started")
	resp, err := s.remote.BuildIndex(ctx, convID)
	if err == nil && !resp.Success {
		err = fmt.Errorf("remote service rejected build: %s", resp.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.building, convID)

	if err != nil {
		log.Error("index build failed", zap.Error(err))
		_, _, saveErr := s.updateLocked(ctx, convID, func(c *entity.Conversation) {
			c.RagReady = false
		})
		return multierr.Append(&entity.BuildError{ConversationID: convID, Err: err}, saveErr)
	}

	stale := false
	_, found, err := s.updateLocked(ctx, convID, func(c *entity.Conversation) {
		if c.FileRevision != revision {
			stale = true
			return
		}
		c.MarkRetrievalReady(s.timestamp())
	})
	if err != nil {
		return err
	}

	switch {
	case !found:
		log.Warn("conversation deleted during index build")
	case stale:
		log.Warn("file set changed during index build, index not marked ready")
		return entity.ErrIndexStale
	default:
		log.Info("index build completed", zap.Int("processed_files", resp.ProcessedFiles))
	}
	return nil
}

func (s *Store) startBuild(convID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.conversations, convID)
	if idx < 0 {
		return 0, false, nil
	}
	conv := &s.conversations[idx]

	if _, running := s.building[convID]; running {
		return 0, true, entity.ErrBuildInProgress
	}
	if conv.HasPendingUploads() {
		return 0, true, entity.ErrUploadsPending
	}
	if conv.CompletedFiles() == 0 {
		return 0, true, entity.ErrNoFiles
	}

	s.building[convID] = struct{}{}
	return conv.FileRevision, true, nil
}

// BuildStatus reports the tri-state index status. Unknown ids are not built.
func (s *Store) BuildStatus(convID string) entity.RagStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statusLocked(convID)
}

func (s *Store) statusLocked(convID string) entity.RagStatus {
	if _, running := s.building[convID]; running {
		return entity.RagStatusBuilding
	}
	idx := indexOf(s.conversations, convID)
	if idx >= 0 && s.conversations[idx].RagReady {
		return entity.RagStatusReady
	}
	return entity.RagStatusNotBuilt
}

// RefreshStatus reconciles local readiness with the remote service. The
// remote answer can only revoke readiness, never grant it.
func (s *Store) RefreshStatus(ctx context.Context, convID string) (entity.RagStatus, error) {
	ctx = logger.WithAction(logger.WithConversation(ctx, convID), "refresh_status")

	conv, ok := s.Get(convID)
	if !ok {
		return entity.RagStatusNotBuilt, nil
	}
	if status := s.BuildStatus(convID); status != entity.RagStatusReady {
		return status, nil
	}

	remote, err := s.remote.Status(ctx, convID)
	if err != nil {
		return s.BuildStatus(convID), fmt.Errorf("get remote status: %w", err)
	}
	if remote.RagReady {
		return s.BuildStatus(convID), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.building[convID]; running {
		return entity.RagStatusBuilding, nil
	}

	_, _, err = s.updateLocked(ctx, convID, func(c *entity.Conversation) {
		// a rebuild or file change since the check owns the flag now
		if c.FileRevision == conv.FileRevision && c.LastActivity == conv.LastActivity {
			c.RagReady = false
		}
	})
	if err != nil {
		return s.statusLocked(convID), err
	}

	ctxzap.Extract(ctx).Warn("remote index missing, readiness revoked")
	return s.statusLocked(convID), nil
}
