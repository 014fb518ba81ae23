package uploads

import (
	"net/http"

	"loot-tracker/internal/uploads/models"
	"loot-tracker/internal/uploads/routes"
	"loot-tracker/internal/uploads/services"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
)

// Module stores screenshots attached to boss kills
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates the uploads module storing files in dir
func New(dir string, maxBytes int64, auth *middleware.HumaAuthMiddleware) (*Module, error) {
	service, err := services.NewService(dir, maxBytes)
	if err != nil {
		return nil, err
	}
	return &Module{
		BaseModule: module.NewBaseModule("uploads", nil, nil),
		service:    service,
		auth:       auth,
	}, nil
}

// Routes mounts the multipart upload endpoint
func (m *Module) Routes(r chi.Router) {
	r.Post("/uploads", routes.UploadHandler(m.service, m.auth))
}

// RegisterUnifiedRoutes is a no-op; multipart uploads bypass huma
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {}

// StaticHandler serves stored files under models.PublicPath
func (m *Module) StaticHandler() http.Handler {
	return routes.StaticHandler(m.service, models.PublicPath)
}

var _ module.Module = (*Module)(nil)
