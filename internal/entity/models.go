package entity

import (
	"math"
	"path/filepath"
	"slices"
	"strings"
)

type FileKind string

const (
	FileKindDocument FileKind = "document"
	FileKindVideo    FileKind = "video"
)

func (k FileKind) IsValid() bool {
	switch k {
	case FileKindDocument, FileKindVideo:
		return true
	default:
		return false
	}
}

var videoExtensions = []string{".mp4", ".avi", ".mov"}

// KindFromFilename infers the file kind from its extension.
func KindFromFilename(name string) FileKind {
	ext := strings.ToLower(filepath.Ext(name))
	if slices.Contains(videoExtensions, ext) {
		return FileKindVideo
	}
	return FileKindDocument
}

type FileStatus string

const (
	FileStatusUploading FileStatus = "uploading"
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
)

type RagStatus string

// Retrieval index state of a conversation
const (
	RagStatusNotBuilt RagStatus = "not_built"
	RagStatusBuilding RagStatus = "building"
	RagStatusReady    RagStatus = "ready"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FileRecord is a file attached to exactly one conversation
type FileRecord struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Size   float64    `json:"size"` // megabytes, two decimals
	Kind   FileKind   `json:"type"`
	Status FileStatus `json:"status"`
}

// Conversation is the persisted metadata of a chat session. Message bodies
// live in a separate log keyed by the conversation id.
type Conversation struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	LastActivity string       `json:"last_activity"`
	Files        []FileRecord `json:"files"`
	RagReady     bool         `json:"rag_ready"`
	FileRevision int64        `json:"file_revision"`
}

// Clone returns a deep copy so that snapshots handed out never alias the
// store's internal state.
func (c Conversation) Clone() Conversation {
	c.Files = slices.Clone(c.Files)
	if c.Files == nil {
		c.Files = []FileRecord{}
	}
	return c
}

// InvalidateRetrieval must be called on every change of the file set.
func (c *Conversation) InvalidateRetrieval() {
	c.RagReady = false
	c.FileRevision++
}

// MarkRetrievalReady is reserved for a successful index build.
func (c *Conversation) MarkRetrievalReady(at string) {
	c.RagReady = true
	c.LastActivity = at
}

func (c *Conversation) FileIndex(fileID string) int {
	return slices.IndexFunc(c.Files, func(f FileRecord) bool { return f.ID == fileID })
}

func (c *Conversation) HasPendingUploads() bool {
	return slices.ContainsFunc(c.Files, func(f FileRecord) bool { return f.Status == FileStatusUploading })
}

func (c *Conversation) CompletedFiles() int {
	n := 0
	for _, f := range c.Files {
		if f.Status == FileStatusCompleted {
			n++
		}
	}
	return n
}

type VideoSource struct {
	Time string `json:"time"` // mm:ss or hh:mm:ss
	Text string `json:"text"`
}

// Message is one chat turn. Assistant content may contain markdown.
type Message struct {
	ID           string        `json:"id"`
	Role         Role          `json:"role"`
	Content      string        `json:"content"`
	Timestamp    string        `json:"timestamp"`
	VideoSources []VideoSource `json:"video_sources"`
	Images       []string      `json:"images"`
}

// Exchange is the pair of messages produced by one question
type Exchange struct {
	Question Message `json:"question"`
	Answer   Message `json:"answer"`
	Failed   bool    `json:"failed"`
}

// FileUpload is a file submitted for attachment to a conversation
type FileUpload struct {
	Name      string
	SizeBytes int64
	Kind      FileKind
	Content   []byte
}

// MegabytesFromBytes converts a byte count to megabytes rounded to two decimals.
func MegabytesFromBytes(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
