package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loot-tracker/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestSaveSniffsType(t *testing.T) {
	dir := t.TempDir()
	service, err := NewService(dir, 1<<20)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name        string
		content     []byte
		contentType string
		ext         string
	}{
		{"png", pngHeader, "image/png", ".png"},
		{"jpeg", append([]byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00"), bytes.Repeat([]byte{0}, 32)...), "image/jpeg", ".jpg"},
		{"gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), "image/gif", ".gif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload, err := service.Save(ctx, "u1", bytes.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, upload.ContentType)
			assert.True(t, strings.HasSuffix(upload.Filename, tt.ext))
			assert.Equal(t, "/uploads/"+upload.Filename, upload.URL)
			assert.Equal(t, int64(len(tt.content)), upload.Size)

			stored, err := os.ReadFile(filepath.Join(dir, upload.Filename))
			require.NoError(t, err)
			assert.Equal(t, tt.content, stored)
		})
	}
}

func TestSaveRejects(t *testing.T) {
	dir := t.TempDir()
	service, err := NewService(dir, 64)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = service.Save(ctx, "u1", strings.NewReader("#!/bin/sh\necho hi\n"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = service.Save(ctx, "u1", bytes.NewReader(nil))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 100)...)
	_, err = service.Save(ctx, "u1", bytes.NewReader(big))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewServiceCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	service, err := NewService(dir, 10)
	require.NoError(t, err)
	assert.Equal(t, dir, service.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
