package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// GenerationJobType tags generation jobs on the shared queue.
const GenerationJobType = "timetable.generate"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type generationRunner interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResponse, error)
}

// GenerationJobConfig governs retention of finished jobs.
type GenerationJobConfig struct {
	ResultTTL time.Duration
}

type generationJobEntry struct {
	job    models.GenerationJob
	req    dto.GenerateTimetableRequest
	result *dto.GenerationResponse
	cancel context.CancelFunc
}

// GenerationJobService runs generation in the background and tracks job status.
// Jobs live in memory; a restart forgets them.
type GenerationJobService struct {
	runner    generationRunner
	queue     jobDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GenerationJobConfig
	now       func() time.Time

	mu   sync.Mutex
	jobs map[string]*generationJobEntry
}

// NewGenerationJobService constructs the service. SetQueue must be called before
// Submit when the queue is created after the service.
func NewGenerationJobService(runner generationRunner, queue jobDispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg GenerationJobConfig) *GenerationJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	return &GenerationJobService{
		runner:    runner,
		queue:     queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		jobs:      make(map[string]*generationJobEntry),
	}
}

// SetQueue attaches the dispatcher whose handler is Handle.
func (s *GenerationJobService) SetQueue(queue jobDispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = queue
}

// Submit validates the request and queues a generation run.
func (s *GenerationJobService) Submit(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.GenerationJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	entry := &generationJobEntry{
		job: models.GenerationJob{
			ID:        uuid.NewString(),
			Status:    models.GenerationJobQueued,
			CreatedBy: actorID,
			CreatedAt: s.now(),
		},
		req: req,
	}
	if req.TimetableID != "" {
		id := req.TimetableID
		entry.job.TimetableID = &id
	}

	s.mu.Lock()
	s.jobs[entry.job.ID] = entry
	queue := s.queue
	s.mu.Unlock()

	if queue == nil {
		s.finish(entry.job.ID, models.GenerationJobFailed, nil, "generation queue unavailable")
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation queue unavailable")
	}
	if err := queue.Enqueue(jobs.Job{ID: entry.job.ID, Type: GenerationJobType}); err != nil {
		s.finish(entry.job.ID, models.GenerationJobFailed, nil, "failed to enqueue job")
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "too many generation jobs in flight")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}
	s.logger.Info("generation job queued", zap.String("job_id", entry.job.ID))
	return s.Status(ctx, entry.job.ID)
}

// Status returns a snapshot of the job.
func (s *GenerationJobService) Status(ctx context.Context, id string) (*dto.GenerationJobResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	return entry.snapshot(), nil
}

// Cancel stops a queued or running job. Finished jobs cannot be cancelled.
func (s *GenerationJobService) Cancel(ctx context.Context, id string) (*dto.GenerationJobResponse, error) {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	switch {
	case entry.job.Status.Terminal():
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("generation job already %s", entry.job.Status))
	case entry.job.Status == models.GenerationJobQueued:
		s.mu.Unlock()
		s.finish(id, models.GenerationJobCancelled, nil, "")
	default:
		cancel := entry.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
	s.logger.Info("generation job cancel requested", zap.String("job_id", id))
	return s.Status(ctx, id)
}

// Handle is the queue handler. Generation failures are recorded on the job and
// never retried by the queue.
func (s *GenerationJobService) Handle(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	entry, ok := s.jobs[job.ID]
	if !ok || entry.job.Status != models.GenerationJobQueued {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	started := s.now()
	entry.job.Status = models.GenerationJobRunning
	entry.job.StartedAt = &started
	entry.cancel = cancel
	req := entry.req
	s.mu.Unlock()

	resp, err := s.runner.Generate(runCtx, req)
	if err != nil && runCtx.Err() != nil && ctx.Err() == nil {
		s.finish(job.ID, models.GenerationJobCancelled, nil, "")
		return nil
	}
	if err != nil {
		s.logger.Warn("generation job failed", zap.String("job_id", job.ID), zap.Error(err))
		s.finish(job.ID, models.GenerationJobFailed, nil, err.Error())
		return nil
	}
	status := models.GenerationJobFinished
	if resp.Cancelled {
		status = models.GenerationJobCancelled
	}
	s.finish(job.ID, status, resp, "")
	return nil
}

// Prune drops terminal jobs older than the configured TTL.
func (s *GenerationJobService) Prune() int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.jobs {
		if entry.job.FinishedAt != nil && entry.job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("pruned generation jobs", zap.Int("count", removed))
	}
	return removed
}

// List returns every tracked job, newest first.
func (s *GenerationJobService) List() []models.GenerationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GenerationJob, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, entry.snapshot().Job)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *GenerationJobService) finish(id string, status models.GenerationJobStatus, resp *dto.GenerationResponse, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		return
	}
	now := s.now()
	entry.job.Status = status
	entry.job.FinishedAt = &now
	entry.cancel = nil
	if message != "" {
		entry.job.ErrorMessage = &message
	}
	if resp != nil {
		entry.result = resp
		entry.job.UnplacedCount = len(resp.Unplaced)
		if resp.Timetable != nil {
			id := resp.Timetable.ID
			entry.job.TimetableID = &id
		}
	}
	s.metrics.RecordGenerationJob(string(status))
}

func (e *generationJobEntry) snapshot() *dto.GenerationJobResponse {
	job := e.job
	if job.TimetableID != nil {
		id := *job.TimetableID
		job.TimetableID = &id
	}
	return &dto.GenerationJobResponse{Job: job, Result: e.result}
}
