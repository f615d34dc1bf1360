package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/futig/rag-conversations/internal/idgen"
	"github.com/futig/rag-conversations/internal/pkg/formatter"
	"github.com/futig/rag-conversations/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errRemoteDown = errors.New("connection refused")

// fakeRemote records calls and lets tests fail or block individual operations.
type fakeRemote struct {
	mu sync.Mutex

	uploadErr   map[string]error // by file name
	uploadGate  map[string]chan struct{}
	deleteErr   error
	buildErr    error
	buildGate   chan struct{}
	queryErr    error
	queryResp   *entity.RAGQueryResponse
	statusReady bool
	afterUpload func() // runs once the remote accepted a file
	onQuery     func()

	uploads      []string
	deletes      []string
	builds       atomic.Int32
	buildsActive atomic.Int32
	maxActive    atomic.Int32
	queries      atomic.Int32
	nextFileID   int
}

var _ RagConnector = &fakeRemote{}

func newFakeRemote() *fakeRemote {
	answer := "ok"
	return &fakeRemote{
		uploadErr:   map[string]error{},
		uploadGate:  map[string]chan struct{}{},
		queryResp:   &entity.RAGQueryResponse{Answer: &answer},
		statusReady: true,
	}
}

func (f *fakeRemote) UploadFile(ctx context.Context, convID string, file *entity.FileUpload) (*entity.RAGFileInfo, error) {
	f.mu.Lock()
	gate := f.uploadGate[file.Name]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, file.Name)
	if err := f.uploadErr[file.Name]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.nextFileID++
	info := &entity.RAGFileInfo{ID: fmt.Sprintf("remote-%d", f.nextFileID), Name: file.Name}
	hook := f.afterUpload
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return info, nil
}

func (f *fakeRemote) DeleteFile(_ context.Context, _ string, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, fileID)
	return f.deleteErr
}

func (f *fakeRemote) BuildIndex(ctx context.Context, _ string) (*entity.RAGBuildResponse, error) {
	f.builds.Add(1)
	active := f.buildsActive.Add(1)
	defer f.buildsActive.Add(-1)
	for {
		m := f.maxActive.Load()
		if active <= m || f.maxActive.CompareAndSwap(m, active) {
			break
		}
	}

	f.mu.Lock()
	gate, err := f.buildGate, f.buildErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &entity.RAGBuildResponse{Success: true, ProcessedFiles: 1}, nil
}

func (f *fakeRemote) Query(ctx context.Context, _, _ string) (*entity.RAGQueryResponse, error) {
	f.queries.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onQuery != nil {
		f.onQuery()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResp, nil
}

func (f *fakeRemote) Status(_ context.Context, convID string) (*entity.RAGStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &entity.RAGStatusResponse{ConversationID: convID, RagReady: f.statusReady}, nil
}

func (f *fakeRemote) gateUpload(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.uploadGate[name] = ch
	return ch
}

func (f *fakeRemote) gateBuild() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.buildGate = ch
	return ch
}

// ctxStore fails like the SQL drivers do once the context is done.
type ctxStore struct {
	*repository.MemoryStore
}

func (s ctxStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s ctxStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Put(ctx, key, value)
}

func (s ctxStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Delete(ctx, key)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *Store
	remote *fakeRemote
	kv     *repository.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := repository.NewMemoryStore()
	remote := newFakeRemote()
	return &fixture{store: openStore(t, kv, remote), remote: remote, kv: kv}
}

// newCtxFixture is newFixture over a store that rejects done contexts.
func newCtxFixture(t *testing.T) *fixture {
	t.Helper()
	kv := repository.NewMemoryStore()
	remote := newFakeRemote()
	return &fixture{store: openStore(t, ctxStore{kv}, remote), remote: remote, kv: kv}
}

func openStore(t *testing.T, kv repository.Store, remote RagConnector) *Store {
	t.Helper()
	s, err := New(context.Background(), kv, remote, idgen.Sequence("id"), nil, formatter.NewFactory(),
		Options{Now: func() time.Time { return fixedNow }}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func doc(name string) entity.FileUpload {
	return entity.FileUpload{Name: name, SizeBytes: 2 * 1024 * 1024, Content: []byte("data")}
}

// readyConversation returns a conversation with one uploaded file and a built index.
func (fx *fixture) readyConversation(t *testing.T) entity.Conversation {
	t.Helper()
	ctx := context.Background()

	conv, err := fx.store.Create(ctx)
	require.NoError(t, err)
	_, err = fx.store.AddFiles(ctx, conv.ID, []entity.FileUpload{doc("a.pdf")})
	require.NoError(t, err)
	require.NoError(t, fx.store.Build(ctx, conv.ID))

	conv, ok := fx.store.Get(conv.ID)
	require.True(t, ok)
	require.True(t, conv.RagReady)
	return conv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
