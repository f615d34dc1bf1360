package formatter

import (
	"bytes"
	"fmt"
	"os"

	"github.com/futig/rag-conversations/internal/entity"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	unicodeFont  = "DejaVuSans"
	fallbackFont = "Helvetica"
)

// fontCandidates are checked in order: the container layout first, then the
// repository layout for local runs.
var fontCandidates = []string{
	"ttf/DejaVuSans.ttf",
	"internal/pkg/formatter/ttf/DejaVuSans.ttf",
}

type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

func findFont() string {
	for _, path := range fontCandidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

type pdfWriter struct {
	doc  *gofpdf.Fpdf
	font string
	text func(string) string
}

func newPDFWriter() *pdfWriter {
	doc := gofpdf.New("P", "mm", "A4", "")
	w := &pdfWriter{doc: doc, font: fallbackFont, text: func(s string) string { return s }}

	if path := findFont(); path != "" {
		doc.AddUTF8Font(unicodeFont, "", path)
		doc.AddUTF8Font(unicodeFont, "B", path)
		w.font = unicodeFont
	} else {
		// core fonts are cp1252
		w.text = doc.UnicodeTranslatorFromDescriptor("")
	}
	doc.AddPage()
	return w
}

func (w *pdfWriter) line(style string, size, height float64, s string) {
	w.doc.SetFont(w.font, style, size)
	w.doc.MultiCell(0, height, w.text(s), "", "", false)
}

func (w *pdfWriter) message(m entity.Message) {
	w.line("B", 12, 7, fmt.Sprintf("%s  %s", speaker(m.Role), m.Timestamp))
	w.line("", 11, 6, m.Content)
	for _, vs := range m.VideoSources {
		w.line("", 10, 5, fmt.Sprintf("[%s] %s", vs.Time, vs.Text))
	}
	if n := len(m.Images); n > 0 {
		w.line("", 9, 5, fmt.Sprintf("%d image(s) not included", n))
	}
	w.doc.Ln(4)
}

func (mf *PDFFormatter) Format(t *entity.Transcript) ([]byte, error) {
	w := newPDFWriter()

	w.line("B", 20, 10, title(t))
	if t.ExportedAt != "" {
		w.line("", 9, 6, "Exported "+t.ExportedAt)
	}
	w.doc.Ln(4)

	for _, m := range t.Messages {
		w.message(m)
	}

	var buf bytes.Buffer
	if err := w.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
