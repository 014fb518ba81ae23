package routes

import (
	"context"
	"log/slog"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/scheduler/dto"
	"loot-tracker/internal/scheduler/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterSchedulerRoutes registers the job admin routes on a shared API
func RegisterSchedulerRoutes(api huma.API, basePath string, engine *services.Engine, auth *middleware.HumaAuthMiddleware) {
	security := []map[string][]string{{"authToken": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "scheduler-list-jobs",
		Method:      http.MethodGet,
		Path:        basePath + "/jobs",
		Summary:     "List scheduled jobs",
		Tags:        []string{"Scheduler"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListJobsInput) (*dto.ListJobsOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapSchedulerAdmin); err != nil {
			return nil, err
		}
		out := &dto.ListJobsOutput{}
		out.Body.Jobs = engine.Jobs()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "scheduler-get-job",
		Method:      http.MethodGet,
		Path:        basePath + "/jobs/{name}",
		Summary:     "Get a scheduled job",
		Tags:        []string{"Scheduler"},
		Security:    security,
	}, func(ctx context.Context, input *dto.JobNameInput) (*dto.JobOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapSchedulerAdmin); err != nil {
			return nil, err
		}
		job, err := engine.Job(input.Name)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.JobOutput{Body: *job}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "scheduler-run-job",
		Method:      http.MethodPost,
		Path:        basePath + "/jobs/{name}/run",
		Summary:     "Run a job now",
		Description: "Runs synchronously and returns the execution record. Fails with 409 while the job is running on this instance.",
		Tags:        []string{"Scheduler"},
		Security:    security,
	}, func(ctx context.Context, input *dto.JobNameInput) (*dto.ExecutionOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapSchedulerAdmin)
		if err != nil {
			return nil, err
		}
		slog.Info("Manual job run requested", "job", input.Name, "user_id", user.UserID)
		execution, err := engine.Run(ctx, input.Name)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.ExecutionOutput{Body: *execution}, nil
	})

	for _, action := range []struct {
		name   string
		paused bool
	}{{"pause", true}, {"resume", false}} {
		paused := action.paused
		huma.Register(api, huma.Operation{
			OperationID: "scheduler-" + action.name + "-job",
			Method:      http.MethodPost,
			Path:        basePath + "/jobs/{name}/" + action.name,
			Summary:     "Toggle scheduled runs of a job (" + action.name + ")",
			Tags:        []string{"Scheduler"},
			Security:    security,
		}, func(ctx context.Context, input *dto.JobNameInput) (*dto.JobOutput, error) {
			if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapSchedulerAdmin); err != nil {
				return nil, err
			}
			job, err := engine.SetPaused(input.Name, paused)
			if err != nil {
				return nil, apperrors.ToHuma(err)
			}
			return &dto.JobOutput{Body: *job}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "scheduler-job-executions",
		Method:      http.MethodGet,
		Path:        basePath + "/jobs/{name}/executions",
		Summary:     "List recent runs of a job",
		Tags:        []string{"Scheduler"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ExecutionsInput) (*dto.ExecutionsOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapSchedulerAdmin); err != nil {
			return nil, err
		}
		executions, err := engine.Executions(ctx, input.Name, int64(input.Limit))
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.ExecutionsOutput{}
		out.Body.Executions = executions
		return out, nil
	})
}
