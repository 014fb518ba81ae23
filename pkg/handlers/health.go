package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"loot-tracker/pkg/version"
)

// HealthChecker is a dependency the health endpoint pings
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthHandler reports healthy when every named dependency answers its ping. A failing
// dependency turns the response into a 503 so load balancers take the instance out.
func HealthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:  "healthy",
			Version: version.Get().String(),
		}
		statusCode := http.StatusOK

		if len(checks) > 0 {
			response.Dependencies = make(map[string]string, len(checks))
		}
		for name, checker := range checks {
			if checker == nil {
				continue
			}
			if err := checker.HealthCheck(ctx); err != nil {
				slog.Warn("Health check failed", "dependency", name, "error", err)
				response.Dependencies[name] = "unhealthy"
				response.Status = "unhealthy"
				statusCode = http.StatusServiceUnavailable
				continue
			}
			response.Dependencies[name] = "healthy"
		}

		JSONResponse(w, response, statusCode)
	}
}
