package models

import (
	"context"
	"time"
)

const ExecutionsCollection = "job_executions"

// ExecutionStatus represents the outcome of one job run
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusSkipped   ExecutionStatus = "skipped"
)

// Trigger records what started a run
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
)

// RunFunc performs one sweep at now and describes what it did
type RunFunc func(ctx context.Context, now time.Time) (string, error)

// Job is a fixed system job. Jobs are defined in code, not stored.
type Job struct {
	Name        string
	Description string
	Schedule    string
	Timeout     time.Duration
	Run         RunFunc
}

// Execution is the record of one run, kept in job_executions
type Execution struct {
	ID          string          `json:"id" bson:"_id"`
	Job         string          `json:"job" bson:"job"`
	Trigger     Trigger         `json:"trigger" bson:"trigger"`
	Status      ExecutionStatus `json:"status" bson:"status"`
	Instance    string          `json:"instance" bson:"instance"`
	StartedAt   time.Time       `json:"started_at" bson:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Duration    Duration        `json:"duration" bson:"duration"`
	Output      string          `json:"output,omitempty" bson:"output,omitempty"`
	Error       string          `json:"error,omitempty" bson:"error,omitempty"`
}

// JobInfo is the admin view of a job and its recent history on this instance
type JobInfo struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Schedule     string          `json:"schedule"`
	Timeout      Duration        `json:"timeout"`
	Paused       bool            `json:"paused"`
	Running      bool            `json:"running"`
	NextRun      *time.Time      `json:"next_run,omitempty"`
	LastRun      *time.Time      `json:"last_run,omitempty"`
	LastStatus   ExecutionStatus `json:"last_status,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	SuccessCount int64           `json:"success_count"`
	FailureCount int64           `json:"failure_count"`
}
