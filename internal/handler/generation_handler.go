package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResponse, error)
}

type generationJobs interface {
	Submit(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.GenerationJobResponse, error)
	Status(ctx context.Context, id string) (*dto.GenerationJobResponse, error)
	Cancel(ctx context.Context, id string) (*dto.GenerationJobResponse, error)
	List() []models.GenerationJob
}

// GenerationHandler exposes synchronous and background timetable generation.
type GenerationHandler struct {
	generator timetableGenerator
	jobs      generationJobs
}

// NewGenerationHandler constructs the handler.
func NewGenerationHandler(generator *service.ScheduleGeneratorService, jobs *service.GenerationJobService) *GenerationHandler {
	return &GenerationHandler{generator: generator, jobs: jobs}
}

// Generate godoc
// @Summary Generate a timetable into a draft
// @Description Places as many required periods as possible. Units that cannot be placed are listed with a reason.
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"unplaced":  len(result.Unplaced),
		"cancelled": result.Cancelled,
	}
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// SubmitJob godoc
// @Summary Queue a background generation run
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 202 {object} response.Envelope
// @Router /generation-jobs [post]
func (h *GenerationHandler) SubmitJob(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ListJobs godoc
// @Summary List tracked generation jobs
// @Tags Generation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /generation-jobs [get]
func (h *GenerationHandler) ListJobs(c *gin.Context) {
	items := h.jobs.List()
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// JobStatus godoc
// @Summary Get generation job status
// @Tags Generation
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /generation-jobs/{id} [get]
func (h *GenerationHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// CancelJob godoc
// @Summary Cancel a queued or running generation job
// @Tags Generation
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /generation-jobs/{id} [delete]
func (h *GenerationHandler) CancelJob(c *gin.Context) {
	job, err := h.jobs.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

func bindGenerateRequest(c *gin.Context) (dto.GenerateTimetableRequest, bool) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return req, false
	}
	return req, true
}
