package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/render"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// Export formats.
const (
	ExportFormatText = "text"
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
)

var exportContentTypes = map[string]string{
	ExportFormatText: "text/plain; charset=utf-8",
	ExportFormatCSV:  "text/csv; charset=utf-8",
	ExportFormatPDF:  "application/pdf",
}

var exportExtensions = map[string]string{
	ExportFormatText: "txt",
	ExportFormatCSV:  "csv",
	ExportFormatPDF:  "pdf",
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Exists(filename string) bool
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.TimetableDocument) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix          string
	ResultTTL          time.Duration
	CacheTTL           time.Duration
	SchoolName         string
	DefaultOrientation export.Orientation
	DefaultPageSize    export.PageSize
}

// RenderedExport is the byte output of one export request.
type RenderedExport struct {
	TimetableID string `json:"timetableId"`
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	ETag        string `json:"etag"`
	Content     []byte `json:"content"`
}

// StoredExport is an opened file behind a signed link. Callers close File.
type StoredExport struct {
	File        *os.File
	Filename    string
	ContentType string
	ETag        string
}

// ExportService renders projected views to text, CSV or PDF and keeps signed
// copies on disk for download.
type ExportService struct {
	timetables timetableReader
	roster     rosterLoader
	calendar   calendarProvider
	cache      *CacheService
	storage    fileStorage
	signer     *storage.SignedURLSigner
	text       documentRenderer
	pdf        documentRenderer
	csv        csvRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	timetables timetableReader,
	roster rosterLoader,
	calendars calendarProvider,
	cache *CacheService,
	files fileStorage,
	signer *storage.SignedURLSigner,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DefaultOrientation == "" {
		cfg.DefaultOrientation = export.OrientationLandscape
	}
	if cfg.DefaultPageSize == "" {
		cfg.DefaultPageSize = export.PageSizeA4
	}
	return &ExportService{
		timetables: timetables,
		roster:     roster,
		calendar:   calendars,
		cache:      cache,
		storage:    files,
		signer:     signer,
		text:       export.NewTextRenderer(),
		pdf:        export.NewPDFExporter(),
		csv:        export.NewCSVExporter(),
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Render produces the export bytes. Identical timetable versions and options
// always yield identical bytes and ETag.
func (s *ExportService) Render(ctx context.Context, timetableID string, q dto.ExportQuery) (*RenderedExport, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	mode, ok := scheduler.ParseViewMode(q.Mode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown view mode %q", q.Mode))
	}
	orientation, err := export.ParseOrientation(q.Orientation, s.cfg.DefaultOrientation)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	pageSize, err := export.ParsePageSize(q.PageSize, s.cfg.DefaultPageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	format := q.Format
	if format == "" {
		format = ExportFormatText
	}

	tt, err := s.timetables.Get(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	cal, err := s.calendar.Current(ctx)
	if err != nil {
		return nil, err
	}

	stats := "nostats"
	if q.Stats {
		stats = "stats"
	}
	key := TimetableKey(tt.ID, tt.Version, "export", calendarFingerprint(cal), format, string(mode), q.SelectedID, string(orientation), string(pageSize), stats)
	var cached RenderedExport
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	roster, err := s.roster.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	grid := scheduler.BuildGrid(cal, scheduler.Project(tt.Slots, mode, q.SelectedID))
	doc := render.BuildDocument(grid, render.NamesFromRoster(roster), render.Options{
		SchoolName:        s.cfg.SchoolName,
		Timetable:         tt.Summary(),
		Mode:              mode,
		SelectedID:        q.SelectedID,
		Orientation:       orientation,
		PageSize:          pageSize,
		IncludeStatistics: q.Stats,
		Statistics:        tt.Statistics,
	})

	var content []byte
	switch format {
	case ExportFormatCSV:
		content, err = s.csv.Render(doc.Dataset())
	case ExportFormatPDF:
		content, err = s.pdf.Render(doc)
	default:
		content, err = s.text.Render(doc)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	rendered := &RenderedExport{
		TimetableID: tt.ID,
		Format:      format,
		Filename:    exportFilename(tt.Name, mode, q.SelectedID, format),
		ContentType: exportContentTypes[format],
		ETag:        export.ContentHash(content),
		Content:     content,
	}
	_ = s.cache.Set(ctx, key, rendered, s.cfg.CacheTTL)
	s.logger.Debug("export rendered",
		zap.String("timetable_id", tt.ID),
		zap.String("format", format),
		zap.String("mode", string(mode)),
		zap.Int("bytes", len(content)),
	)
	return rendered, nil
}

// Store renders the export, keeps it on disk under its ETag and returns a
// signed download link.
func (s *ExportService) Store(ctx context.Context, timetableID string, q dto.ExportQuery) (*dto.ExportLink, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}
	rendered, err := s.Render(ctx, timetableID, q)
	if err != nil {
		return nil, err
	}

	relPath := path.Join(rendered.TimetableID, rendered.ETag+"."+exportExtensions[rendered.Format])
	if !s.storage.Exists(relPath) {
		if _, err := s.storage.Save(relPath, rendered.Content); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
		}
	}

	exportID := uuid.NewString()
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("export stored", zap.String("timetable_id", rendered.TimetableID), zap.String("path", relPath))
	return &dto.ExportLink{
		ExportID:  exportID,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		ETag:      rendered.ETag,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Open validates a signed token and opens the stored export.
func (s *ExportService) Open(token string) (*StoredExport, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired export link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	base := path.Base(relPath)
	ext := path.Ext(base)
	format := ExportFormatText
	for f, e := range exportExtensions {
		if "."+e == ext {
			format = f
		}
	}
	return &StoredExport{
		File:        file,
		Filename:    base,
		ContentType: exportContentTypes[format],
		ETag:        strings.TrimSuffix(base, ext),
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func exportFilename(name string, mode scheduler.ViewMode, selectedID, format string) string {
	parts := []string{sanitizeFilename(name), string(mode)}
	if selectedID != "" && mode != scheduler.ViewAdmin {
		parts = append(parts, sanitizeFilename(selectedID))
	}
	return strings.Join(parts, "_") + "." + exportExtensions[format]
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
