package dto

import (
	"loot-tracker/internal/scheduler/models"
	"loot-tracker/pkg/middleware"
)

// ListJobsInput represents the input for listing jobs
type ListJobsInput struct {
	middleware.AuthHeaders
}

// JobNameInput represents a path addressed job
type JobNameInput struct {
	middleware.AuthHeaders
	Name string `path:"name" doc:"Job name, e.g. settle-auctions"`
}

// ExecutionsInput represents the input for a job's run history
type ExecutionsInput struct {
	middleware.AuthHeaders
	Name  string `path:"name" doc:"Job name"`
	Limit int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Number of runs to return"`
}

// ListJobsOutput lists the registered jobs
type ListJobsOutput struct {
	Body struct {
		Jobs []models.JobInfo `json:"jobs"`
	}
}

// JobOutput wraps one job
type JobOutput struct {
	Body models.JobInfo
}

// ExecutionOutput wraps one run
type ExecutionOutput struct {
	Body models.Execution
}

// ExecutionsOutput lists runs of a job
type ExecutionsOutput struct {
	Body struct {
		Executions []models.Execution `json:"executions"`
	}
}
