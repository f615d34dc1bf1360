package validator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/entity"
)

var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
}

const maxTitleLength = 200

// Validator validates file uploads and user input
type Validator struct {
	cfg config.FileUploadConfig
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUploads checks a batch before any of it reaches the remote service.
func (v *Validator) ValidateUploads(files []entity.FileUpload) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	if v.cfg.MaxFileCount > 0 && len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, f := range files {
		if err := v.ValidateUpload(f); err != nil {
			return err
		}
		totalSize += f.SizeBytes
	}

	if v.cfg.MaxUploadSize > 0 && totalSize > v.cfg.MaxUploadSize {
		return fmt.Errorf("%w: total size is %d bytes (max %d)", entity.ErrTotalSizeTooLarge, totalSize, v.cfg.MaxUploadSize)
	}

	return nil
}

func (v *Validator) ValidateUpload(f entity.FileUpload) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: file name", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: pdf, doc, docx, txt, md, mp4, avi, mov)", entity.ErrInvalidExtension, ext)
	}

	if f.Kind != "" && !f.Kind.IsValid() {
		return fmt.Errorf("%w: kind %q", entity.ErrInvalidFile, f.Kind)
	}

	if f.SizeBytes <= 0 {
		return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, f.Name)
	}

	if v.cfg.MaxFileSize > 0 && f.SizeBytes > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, f.Name, f.SizeBytes, v.cfg.MaxFileSize)
	}

	return nil
}

// ValidateTitle rejects titles that would not fit a conversation list.
func (v *Validator) ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", entity.ErrInvalidParameter, maxTitleLength)
	}
	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
