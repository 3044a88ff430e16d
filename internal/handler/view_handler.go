package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type viewProjector interface {
	Project(ctx context.Context, timetableID, mode string, q dto.ViewQuery) (*dto.ViewResponse, error)
}

type timetableExporter interface {
	Render(ctx context.Context, timetableID string, q dto.ExportQuery) (*service.RenderedExport, error)
	Store(ctx context.Context, timetableID string, q dto.ExportQuery) (*dto.ExportLink, error)
	Open(token string) (*service.StoredExport, error)
}

// ViewHandler serves projected grids and rendered exports.
type ViewHandler struct {
	views   viewProjector
	exports timetableExporter
}

// NewViewHandler constructs the handler.
func NewViewHandler(views *service.ViewService, exports *service.ExportService) *ViewHandler {
	return &ViewHandler{views: views, exports: exports}
}

// View godoc
// @Summary Project timetable from a viewpoint
// @Tags Views
// @Produce json
// @Param id path string true "Timetable ID"
// @Param mode path string true "class, teacher, subject or admin"
// @Param selectedId query string false "Class, teacher or subject ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/views/{mode} [get]
func (h *ViewHandler) View(c *gin.Context) {
	var query dto.ViewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	view, err := h.views.Project(c.Request.Context(), c.Param("id"), c.Param("mode"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Render timetable export
// @Description Output bytes are identical for the same timetable version and options. The ETag is a content hash.
// @Tags Views
// @Produce plain
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param mode query string false "class, teacher, subject or admin"
// @Param selectedId query string false "Selected entity"
// @Param format query string false "text, csv or pdf"
// @Param orientation query string false "portrait or landscape"
// @Param pageSize query string false "A4, Letter or Legal"
// @Param stats query bool false "Include statistics"
// @Success 200 {file} file
// @Success 304
// @Router /timetables/{id}/export [get]
func (h *ViewHandler) Export(c *gin.Context) {
	query, ok := bindExportQuery(c)
	if !ok {
		return
	}
	rendered, err := h.exports.Render(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Document(c, rendered.ETag, rendered.Filename, rendered.ContentType, rendered.Content, true)
}

// StoreExport godoc
// @Summary Store an export and return a signed download link
// @Tags Views
// @Produce json
// @Param id path string true "Timetable ID"
// @Param mode query string false "class, teacher, subject or admin"
// @Param selectedId query string false "Selected entity"
// @Param format query string false "text, csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/exports [post]
func (h *ViewHandler) StoreExport(c *gin.Context) {
	query, ok := bindExportQuery(c)
	if !ok {
		return
	}
	link, err := h.exports.Store(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Download godoc
// @Summary Download a stored export through its signed token
// @Tags Views
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *ViewHandler) Download(c *gin.Context) {
	stored, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stored.File.Close()

	info, err := stored.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("ETag", fmt.Sprintf("%q", stored.ETag))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stored.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), stored.ContentType, stored.File, nil)
}

func bindExportQuery(c *gin.Context) (dto.ExportQuery, bool) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export parameters"))
		return query, false
	}
	return query, true
}
