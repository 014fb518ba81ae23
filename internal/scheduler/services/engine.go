package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"loot-tracker/internal/scheduler/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/metrics"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
)

const defaultJobTimeout = 5 * time.Minute

// ExecutionStore persists run history
type ExecutionStore interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	FinishExecution(ctx context.Context, execution *models.Execution) error
	ListExecutions(ctx context.Context, job string, limit int64) ([]models.Execution, error)
}

// Locker is a cross-instance mutex. An empty token means another holder owns the key.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type jobState struct {
	job     models.Job
	entryID cron.EntryID
	running atomic.Bool

	mu         sync.Mutex
	paused     bool
	lastRun    *time.Time
	lastStatus models.ExecutionStatus
	lastError  string
	successes  int64
	failures   int64
}

// Engine runs the fixed system jobs on their cron schedules. A job never overlaps itself
// on one instance; the Redis lock keeps instances from running the same job at once.
// Sweeps stay correct without the lock because every record is claimed before it is
// processed.
type Engine struct {
	cron     *cron.Cron
	store    ExecutionStore
	locker   Locker
	instance string
	now      func() time.Time

	mu   sync.RWMutex
	jobs map[string]*jobState
}

// NewEngine creates an engine. locker may be nil when Redis is unavailable.
func NewEngine(store ExecutionStore, locker Locker) *Engine {
	logger := cronLogger{}
	hostname, _ := os.Hostname()
	return &Engine{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		store:    store,
		locker:   locker,
		instance: fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		now:      time.Now,
		jobs:     make(map[string]*jobState),
	}
}

// Register schedules job
func (e *Engine) Register(job models.Job) error {
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	state := &jobState{job: job}
	id, err := e.cron.AddFunc(job.Schedule, func() { e.tick(state) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	state.entryID = id
	e.jobs[job.Name] = state

	slog.Info("Scheduled job registered", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// Start begins firing jobs
func (e *Engine) Start() {
	e.cron.Start()
	slog.Info("Scheduler started", "jobs", len(e.jobs), "instance", e.instance)
}

// Stop stops firing jobs and waits for running ones to return
func (e *Engine) Stop() {
	<-e.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

func (e *Engine) tick(state *jobState) {
	state.mu.Lock()
	paused := state.paused
	state.mu.Unlock()
	if paused {
		slog.Debug("Skipping paused job", "job", state.job.Name)
		return
	}

	if _, err := e.execute(context.Background(), state, models.TriggerCron); err != nil {
		slog.Warn("Scheduled job did not run", "job", state.job.Name, "error", err)
	}
}

// Run executes name immediately, outside its schedule
func (e *Engine) Run(ctx context.Context, name string) (*models.Execution, error) {
	state, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, state, models.TriggerManual)
}

func (e *Engine) execute(ctx context.Context, state *jobState, trigger models.Trigger) (*models.Execution, error) {
	job := state.job
	if !state.running.CompareAndSwap(false, true) {
		metrics.JobRuns.WithLabelValues(job.Name, string(models.ExecutionStatusSkipped)).Inc()
		return nil, apperrors.Conflict("job %s is already running", job.Name)
	}
	defer state.running.Store(false)

	ctx, span := handlers.StartSpan(ctx, "scheduler.execute",
		attribute.String("job.name", job.Name),
		attribute.String("job.trigger", string(trigger)),
	)
	defer span.End()

	startedAt := e.now()
	execution := &models.Execution{
		ID:        uuid.New().String(),
		Job:       job.Name,
		Trigger:   trigger,
		Status:    models.ExecutionStatusRunning,
		Instance:  e.instance,
		StartedAt: startedAt,
	}

	if e.locker != nil {
		key := "lock:job:" + job.Name
		token, err := e.locker.AcquireLock(ctx, key, job.Timeout)
		switch {
		case err != nil:
			slog.Warn("Job lock unavailable, running unlocked", "job", job.Name, "error", err)
		case token == "":
			execution.Status = models.ExecutionStatusSkipped
			execution.Output = "another instance is running this job"
			metrics.JobRuns.WithLabelValues(job.Name, string(execution.Status)).Inc()
			slog.Debug("Job held by another instance", "job", job.Name)
			return execution, nil
		default:
			defer func() {
				if err := e.locker.ReleaseLock(context.Background(), key, token); err != nil {
					slog.Warn("Failed to release job lock", "job", job.Name, "error", err)
				}
			}()
		}
	}

	if err := e.store.CreateExecution(ctx, execution); err != nil {
		slog.Error("Failed to record job start", "job", job.Name, "error", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	clock := time.Now()
	output, runErr := runSafely(runCtx, job, startedAt)
	elapsed := time.Since(clock)
	cancel()

	completedAt := startedAt.Add(elapsed)
	execution.CompletedAt = &completedAt
	execution.Duration = models.Duration(elapsed)
	execution.Output = output
	execution.Status = models.ExecutionStatusCompleted
	if runErr != nil {
		execution.Status = models.ExecutionStatusFailed
		execution.Error = runErr.Error()
		span.RecordError(runErr)
	}

	state.mu.Lock()
	state.lastRun = &startedAt
	state.lastStatus = execution.Status
	state.lastError = execution.Error
	if runErr != nil {
		state.failures++
	} else {
		state.successes++
	}
	state.mu.Unlock()

	metrics.JobRuns.WithLabelValues(job.Name, string(execution.Status)).Inc()
	metrics.JobDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())

	if err := e.store.FinishExecution(context.Background(), execution); err != nil {
		slog.Error("Failed to record job result", "job", job.Name, "error", err)
	}

	if runErr != nil {
		slog.Error("Job failed", "job", job.Name, "trigger", trigger, "duration", elapsed, "error", runErr)
	} else {
		slog.Info("Job completed", "job", job.Name, "trigger", trigger, "duration", elapsed, "output", output)
	}
	return execution, nil
}

func runSafely(ctx context.Context, job models.Job, now time.Time) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx, now)
}

func (e *Engine) lookup(name string) (*jobState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	state, ok := e.jobs[name]
	if !ok {
		return nil, apperrors.NotFound("job %s not found", name)
	}
	return state, nil
}

// SetPaused stops or resumes the scheduled runs of name. Manual runs still work.
func (e *Engine) SetPaused(name string, paused bool) (*models.JobInfo, error) {
	state, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	state.paused = paused
	state.mu.Unlock()
	slog.Info("Job pause state changed", "job", name, "paused", paused)

	info := e.info(state)
	return &info, nil
}

// Jobs lists the registered jobs sorted by name
func (e *Engine) Jobs() []models.JobInfo {
	e.mu.RLock()
	states := make([]*jobState, 0, len(e.jobs))
	for _, state := range e.jobs {
		states = append(states, state)
	}
	e.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].job.Name < states[j].job.Name })
	out := make([]models.JobInfo, 0, len(states))
	for _, state := range states {
		out = append(out, e.info(state))
	}
	return out
}

// Job returns one job
func (e *Engine) Job(name string) (*models.JobInfo, error) {
	state, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	info := e.info(state)
	return &info, nil
}

// Executions returns the latest runs of name across every instance
func (e *Engine) Executions(ctx context.Context, name string, limit int64) ([]models.Execution, error) {
	if _, err := e.lookup(name); err != nil {
		return nil, err
	}
	return e.store.ListExecutions(ctx, name, limit)
}

func (e *Engine) info(state *jobState) models.JobInfo {
	state.mu.Lock()
	defer state.mu.Unlock()

	info := models.JobInfo{
		Name:         state.job.Name,
		Description:  state.job.Description,
		Schedule:     state.job.Schedule,
		Timeout:      models.Duration(state.job.Timeout),
		Paused:       state.paused,
		Running:      state.running.Load(),
		LastRun:      state.lastRun,
		LastStatus:   state.lastStatus,
		LastError:    state.lastError,
		SuccessCount: state.successes,
		FailureCount: state.failures,
	}
	if next := e.cron.Entry(state.entryID).Next; !next.IsZero() {
		info.NextRun = &next
	}
	return info
}

// cronLogger routes robfig/cron's logging to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
