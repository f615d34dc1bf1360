package render

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/futig/rag-conversations/internal/entity"
)

const (
	MsgWelcome = `👋 Hi! Send me documents or videos and ask questions about them.

Every conversation keeps its own files and history. Build the index with /build once the files are uploaded, then just write your question.

/help lists all commands.`

	MsgHelp = `🤖 Commands:

/new - Start a new conversation
/list - Show conversations
/use N - Switch to conversation N
/delete - Delete the active conversation
/files - Files of the active conversation
/remove N - Remove file N
/build - Build the index
/status - Index status
/export FORMAT - Download the transcript (markdown, html, pdf, docx)
/help - This message

Send a document or video to attach it. Any other text is a question.`

	MsgCreated         = `🆕 Conversation "%s" created and selected.`
	MsgSelected        = `✅ Switched to "%s".`
	MsgDeleteConfirm   = `⚠️ Delete "%s" with all files and messages?`
	MsgDeleted         = `🗑 Conversation deleted.`
	MsgDeleteCancelled = `👌 Kept.`
	MsgNoConversations = `You have no conversations yet. Use /new to start one.`
	MsgNoFiles         = `📂 No files yet. Send a document or video.`
	MsgFileRemoved     = `🗑 %s removed. Rebuild the index with /build.`
	MsgUploading       = `⏳ Uploading %s...`
	MsgUploaded        = `📎 %s (%s) attached. Run /build when all files are in.`
	MsgBuildStarted    = `⏳ Building the index. I will write when it is ready.`
	MsgBuildDone       = `✅ Index is ready. Ask your questions.`
	MsgBuildStale      = `⚠️ The files changed during the build. Run /build again.`
	MsgChooseFormat    = `📄 Choose a format:`

	ErrGeneric         = `❌ Something went wrong. Please try again.`
	ErrNoActive        = `❌ No active conversation. Use /new or /list.`
	ErrBadIndex        = `❌ Unknown number. Check /list or /files.`
	ErrIndexNotReady   = `❌ The index is not built yet. Use /build first.`
	ErrEmptyQuestion   = `❌ The question is empty.`
	ErrNoFilesToBuild  = `❌ Attach at least one file before building.`
	ErrBuildInProgress = `⏳ A build is already running.`
	ErrUploadsPending  = `⏳ Uploads are still in progress. Try again in a moment.`
	ErrInvalidFile     = `❌ %s`
	ErrUploadFailed    = `❌ Could not upload %s. Please try again.`
	ErrRemoteFailed    = `❌ The document service did not respond. Please try again later.`
	ErrBuildFailed     = `❌ Index build failed: %s`
	ErrUnknownCommand  = `❌ Unknown command. See /help.`
	ErrUnknownFormat   = `❌ Unknown format. Use markdown, html, pdf or docx.`
	ErrNetworkIssue    = `❌ Connection problem. Try again later.`
	ErrTimeout         = `❌ The operation took too long. Try again.`
	ErrRateLimited     = `⚠️ Too many messages. Please wait a bit.`
)

// RenderConversationList numbers conversations from 1 and marks the active one.
func RenderConversationList(list []entity.Conversation, activeID string) string {
	if len(list) == 0 {
		return MsgNoConversations
	}

	var sb strings.Builder
	sb.WriteString("💬 Conversations:\n\n")
	for i, c := range list {
		marker := "  "
		if c.ID == activeID {
			marker = "▶️"
		}
		ready := ""
		if c.RagReady {
			ready = " ✅"
		}
		fmt.Fprintf(&sb, "%s %d. %s (%d files)%s\n", marker, i+1, c.Title, len(c.Files), ready)
	}
	return sb.String()
}

// RenderFiles lists files numbered from 1 with human readable sizes.
func RenderFiles(conv entity.Conversation) string {
	if len(conv.Files) == 0 {
		return MsgNoFiles
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📂 Files of \"%s\":\n\n", conv.Title)
	for i, f := range conv.Files {
		fmt.Fprintf(&sb, "%d. %s %s, %s%s\n", i+1, kindIcon(f.Kind), f.Name, HumanSize(f.Size), statusSuffix(f.Status))
	}
	return sb.String()
}

// RenderStatus describes the index state of a conversation.
func RenderStatus(conv entity.Conversation, status entity.RagStatus) string {
	var state string
	switch status {
	case entity.RagStatusReady:
		state = "✅ ready"
	case entity.RagStatusBuilding:
		state = "⏳ building"
	default:
		state = "❌ not built"
	}
	return fmt.Sprintf("💬 %s\n📎 %d files\n🔎 Index: %s", conv.Title, len(conv.Files), state)
}

// RenderAnswer appends video timestamps and the image count to the answer text.
func RenderAnswer(msg entity.Message) string {
	var sb strings.Builder
	sb.WriteString(msg.Content)

	if len(msg.VideoSources) > 0 {
		sb.WriteString("\n\n🎬 Sources:")
		for _, src := range msg.VideoSources {
			fmt.Fprintf(&sb, "\n%s %s", src.Time, src.Text)
		}
	}
	if n := len(msg.Images); n > 0 {
		fmt.Fprintf(&sb, "\n\n🖼 %d image(s) attached", n)
	}
	return sb.String()
}

// HumanSize formats a megabyte size as IEC bytes.
func HumanSize(mb float64) string {
	return humanize.IBytes(uint64(mb * 1024 * 1024))
}

func kindIcon(k entity.FileKind) string {
	if k == entity.FileKindVideo {
		return "🎬"
	}
	return "📄"
}

func statusSuffix(s entity.FileStatus) string {
	switch s {
	case entity.FileStatusUploading:
		return " ⏳"
	case entity.FileStatusFailed:
		return " ❌ failed"
	default:
		return ""
	}
}

// ClassifyError maps an error to the message shown in the chat.
func ClassifyError(err error) string {
	var (
		uploadErr *entity.UploadError
		deleteErr *entity.DeleteError
		buildErr  *entity.BuildError
		netErr    net.Error
	)

	switch {
	case err == nil:
		return ErrGeneric
	case errors.Is(err, entity.ErrIndexNotReady):
		return ErrIndexNotReady
	case errors.Is(err, entity.ErrEmptyQuestion):
		return ErrEmptyQuestion
	case errors.Is(err, entity.ErrNoFiles):
		return ErrNoFilesToBuild
	case errors.Is(err, entity.ErrBuildInProgress):
		return ErrBuildInProgress
	case errors.Is(err, entity.ErrUploadsPending):
		return ErrUploadsPending
	case errors.Is(err, entity.ErrIndexStale):
		return MsgBuildStale
	case errors.Is(err, entity.ErrInvalidFile), errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrFileTooLarge), errors.Is(err, entity.ErrTooManyFiles),
		errors.Is(err, entity.ErrTotalSizeTooLarge):
		return fmt.Sprintf(ErrInvalidFile, err.Error())
	case errors.As(err, &uploadErr):
		return fmt.Sprintf(ErrUploadFailed, uploadErr.FileName)
	case errors.As(err, &buildErr):
		return fmt.Sprintf(ErrBuildFailed, buildErr.Err.Error())
	case errors.As(err, &deleteErr):
		return ErrRemoteFailed
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkIssue
	}
	return ErrGeneric
}
