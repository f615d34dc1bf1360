package formatter

import (
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
)

const untitled = "Conversation"

type Formatter interface {
	Format(t *entity.Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatHTML:
		return NewHTMLFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format: %s", entity.ErrInvalidParameter, format)
	}
}

func title(t *entity.Transcript) string {
	if t.Title == "" {
		return untitled
	}
	return t.Title
}

func speaker(role entity.Role) string {
	if role == entity.RoleUser {
		return "You"
	}
	return "Assistant"
}
