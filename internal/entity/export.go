package entity

import (
	"fmt"
	"strings"
)

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
	FormatPDF      ExportFormat = "pdf"
	FormatDOCX     ExportFormat = "docx"
)

// ParseExportFormat accepts format names and common file extensions.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "docx", "word":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", ErrInvalidParameter, s)
	}
}

// Transcript is the exportable view of a conversation
type Transcript struct {
	Title      string
	ExportedAt string
	Files      []FileRecord
	Messages   []Message
}

type ExportedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
