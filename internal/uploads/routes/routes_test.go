package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/uploads/models"
	"loot-tracker/internal/uploads/services"
	"loot-tracker/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngFile = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type tokenValidator map[string]*authModels.AuthenticatedUser

func (v tokenValidator) ValidateJWT(ctx context.Context, token string) (*authModels.AuthenticatedUser, error) {
	if user, ok := v[token]; ok {
		return user, nil
	}
	return nil, errors.New("invalid token")
}

type rolePolicy struct{}

func (rolePolicy) Can(role authModels.Role, capability authModels.Capability) bool {
	for _, c := range authModels.DefaultRoleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	service, err := services.NewService(t.TempDir(), 1<<20)
	require.NoError(t, err)
	auth := middleware.NewHumaAuthMiddleware(tokenValidator{
		"member": {UserID: "u1", Role: authModels.RoleUser},
		"guest":  {UserID: "u2", Role: authModels.RoleGuild},
	}, rolePolicy{})

	r := chi.NewRouter()
	r.Post("/api/uploads", UploadHandler(service, auth))
	r.Handle(models.PublicPath+"/*", StaticHandler(service, models.PublicPath))
	return r
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "screenshot.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadAndServe(t *testing.T) {
	router := newRouter(t)

	body, contentType := multipartBody(t, "file", pngFile)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-auth-token", "member")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var upload models.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, "u1", upload.UploadedBy)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, upload.URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	served, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, pngFile, served)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, models.PublicPath+"/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRejections(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name   string
		token  string
		field  string
		body   []byte
		status int
	}{
		{"no token", "", "file", pngFile, http.StatusUnauthorized},
		{"missing capability", "guest", "file", pngFile, http.StatusForbidden},
		{"wrong field", "member", "image", pngFile, http.StatusBadRequest},
		{"not an image", "member", "file", []byte("plain text, not a screenshot"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.field, tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
			req.Header.Set("Content-Type", contentType)
			if tt.token != "" {
				req.Header.Set("x-auth-token", tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
