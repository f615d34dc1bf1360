package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(t *entity.Transcript) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(title(t))

	if t.ExportedAt != "" {
		doc.AddParagraph().AddRun().AddText("Exported " + t.ExportedAt)
	}
	doc.AddParagraph()

	for _, m := range t.Messages {
		head := doc.AddParagraph()
		head.SetStyle("Heading2")
		head.AddRun().AddText(fmt.Sprintf("%s  %s", speaker(m.Role), m.Timestamp))

		doc.AddParagraph().AddRun().AddText(m.Content)

		for _, vs := range m.VideoSources {
			doc.AddParagraph().AddRun().AddText(fmt.Sprintf("[%s] %s", vs.Time, vs.Text))
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
