package routes

import (
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/uploads/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"
)

// multipartOverhead leaves room for boundaries and headers around the file part
const multipartOverhead = 64 << 10

// UploadHandler accepts a multipart form whose file part is named file
func UploadHandler(service *services.Service, auth *middleware.HumaAuthMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.RequireCapability(r.Context(), middleware.AuthHeaders{
			AuthToken:     r.Header.Get("x-auth-token"),
			Authorization: r.Header.Get("Authorization"),
		}, authModels.CapUploadsWrite)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, service.MaxBytes()+multipartOverhead)
		file, _, err := r.FormFile("file")
		if err != nil {
			handlers.WriteError(w, apperrors.Validation("multipart field file is required and must be at most %d bytes", service.MaxBytes()))
			return
		}
		defer file.Close()

		upload, err := service.Save(r.Context(), user.UserID, file)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.CreatedResponse(w, upload)
	}
}

// StaticHandler serves stored files. Directory listings are not exposed.
func StaticHandler(service *services.Service, prefix string) http.Handler {
	files := http.FileServer(http.Dir(service.Dir()))
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path == "/" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	}))
}
