package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(t *entity.Transcript) ([]byte, error) {
	return renderMarkdown(t), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}

// renderMarkdown is shared with the HTML formatter. Assistant content is
// already markdown and is written through unchanged.
func renderMarkdown(t *entity.Transcript) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", title(t))
	if t.ExportedAt != "" {
		fmt.Fprintf(&buf, "_Exported %s_\n\n", t.ExportedAt)
	}

	if len(t.Files) > 0 {
		buf.WriteString("## Files\n\n")
		for _, f := range t.Files {
			fmt.Fprintf(&buf, "- %s (%s, %.2f MB)\n", f.Name, f.Kind, f.Size)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Messages\n\n")
	if len(t.Messages) == 0 {
		buf.WriteString("_No messages yet._\n")
	}

	for _, m := range t.Messages {
		fmt.Fprintf(&buf, "### %s", speaker(m.Role))
		if m.Timestamp != "" {
			fmt.Fprintf(&buf, " (%s)", m.Timestamp)
		}
		fmt.Fprintf(&buf, "\n\n%s\n\n", m.Content)

		if len(m.VideoSources) > 0 {
			buf.WriteString("Video sources:\n\n")
			for _, vs := range m.VideoSources {
				fmt.Fprintf(&buf, "- `%s` %s\n", vs.Time, vs.Text)
			}
			buf.WriteString("\n")
		}
		if n := len(m.Images); n > 0 {
			fmt.Fprintf(&buf, "_%d image(s) attached_\n\n", n)
		}
	}

	return buf.Bytes()
}
