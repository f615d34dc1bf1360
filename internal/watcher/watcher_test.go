package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	mu       sync.Mutex
	active   *entity.Conversation
	uploaded []entity.FileUpload
	err      error
}

func (f *fakeUploader) Active() (entity.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return entity.Conversation{}, false
	}
	return *f.active, true
}

func (f *fakeUploader) AddFiles(_ context.Context, _ string, files []entity.FileUpload) ([]entity.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.uploaded = append(f.uploaded, files...)
	return []entity.FileRecord{{ID: "remote-1", Name: files[0].Name}}, nil
}

func (f *fakeUploader) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, u := range f.uploaded {
		out = append(out, u.Name)
	}
	return out
}

func newTestWatcher(t *testing.T, up *fakeUploader) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	v := validator.NewFileValidator(config.FileUploadConfig{MaxFileSize: 1 << 20, MaxFileCount: 5})

	w, err := New(config.WatchConfig{Dir: dir, Settle: 20 * time.Millisecond}, up, v, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, UploadedDir), 0o755))
	return w, dir
}

func TestShouldProcess(t *testing.T) {
	tests := map[string]bool{
		"/in/report.pdf":      true,
		"/in/LECTURE.MP4":     true,
		"/in/.hidden.pdf":     false,
		"/in/~lock.docx":      false,
		"/in/movie.mp4.part":  false,
		"/in/setup.exe":       false,
		"/in/no-extension":    false,
		"/in/uploaded":        false,
		"/in/notes.final.txt": true,
	}
	for path, want := range tests {
		assert.Equal(t, want, ShouldProcess(path), path)
	}
}

func TestUpload_MovesFileAfterSuccess(t *testing.T) {
	up := &fakeUploader{active: &entity.Conversation{ID: "c1"}}
	w, dir := newTestWatcher(t, up)

	path := filepath.Join(dir, "my notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	w.upload(context.Background(), path)

	assert.Equal(t, []string{"my_notes.txt"}, up.names())
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, UploadedDir, "my notes.txt"))
}

func TestUpload_LeavesFileWithoutActiveConversation(t *testing.T) {
	up := &fakeUploader{}
	w, dir := newTestWatcher(t, up)

	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o644))

	w.upload(context.Background(), path)

	assert.Empty(t, up.names())
	assert.FileExists(t, path)
}

func TestUpload_LeavesFileOnFailure(t *testing.T) {
	up := &fakeUploader{active: &entity.Conversation{ID: "c1"}, err: errors.New("remote down")}
	w, dir := newTestWatcher(t, up)

	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o644))

	w.upload(context.Background(), path)

	assert.FileExists(t, path)
}

func TestUpload_SkipsEmptyFile(t *testing.T) {
	up := &fakeUploader{active: &entity.Conversation{ID: "c1"}}
	w, dir := newTestWatcher(t, up)

	path := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w.upload(context.Background(), path)

	assert.Empty(t, up.names())
	assert.FileExists(t, path)
}

func TestRun_UploadsExistingAndNewFiles(t *testing.T) {
	up := &fakeUploader{active: &entity.Conversation{ID: "c1"}}
	w, dir := newTestWatcher(t, up)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "before.pdf"), []byte("old"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return len(up.names()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "after.txt"), []byte("new"), 0o644))

	assert.Eventually(t, func() bool {
		return len(up.names()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"before.pdf", "after.txt"}, up.names())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
