package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"loot-tracker/internal/uploads/models"
	"loot-tracker/pkg/apperrors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffBytes is how much of a file is read to detect its type
const sniffBytes = 3072

// Service stores uploaded screenshots on local disk
type Service struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewService creates the upload directory when missing
func NewService(dir string, maxBytes int64) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Service{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

// Dir returns the directory files are stored in
func (s *Service) Dir() string {
	return s.dir
}

// MaxBytes returns the largest accepted file
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Save sniffs src, rejects anything but the allowed image types and writes it under a
// random name. The declared content type and filename of the client are ignored.
func (s *Service) Save(ctx context.Context, uploadedBy string, src io.Reader) (*models.Upload, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperrors.Validation("file is empty")
	}

	detected := mimetype.Detect(head)
	ext, ok := models.AllowedTypes[detected.String()]
	if !ok {
		return nil, apperrors.Validation("unsupported file type %s", detected.String())
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}

	body := io.MultiReader(bytes.NewReader(head), src)
	size, err := io.Copy(dst, io.LimitReader(body, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > s.maxBytes {
		err = apperrors.Validation("file exceeds %d bytes", s.maxBytes)
	}
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.Warn("Failed to remove partial upload", "path", path, "error", removeErr)
		}
		if apperrors.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	upload := &models.Upload{
		Filename:    name,
		URL:         models.PublicPath + "/" + name,
		ContentType: detected.String(),
		Size:        size,
		UploadedBy:  uploadedBy,
		CreatedAt:   s.now(),
	}
	slog.Info("Upload stored", "filename", name, "content_type", upload.ContentType, "size", size, "user_id", uploadedBy)
	return upload, nil
}
