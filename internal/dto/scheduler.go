package dto

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// CreateTimetableRequest opens a new draft timetable.
type CreateTimetableRequest struct {
	Name         string                 `json:"name" validate:"required,max=120"`
	AcademicYear string                 `json:"academicYear" validate:"required,max=20"`
	Term         string                 `json:"term" validate:"required,max=20"`
	Type         models.TimetableType   `json:"type" validate:"omitempty,oneof=TEACHING EXAM"`
	Rules        *models.DetectionRules `json:"rules"`
}

// TimetableQuery filters timetable listings.
type TimetableQuery struct {
	AcademicYear string `form:"academicYear"`
	Term         string `form:"term"`
	Type         string `form:"type" validate:"omitempty,oneof=TEACHING EXAM"`
	Status       string `form:"status" validate:"omitempty,oneof=DRAFT ACTIVE ARCHIVED"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// AddSlotRequest places one slot, or a double-period pair starting at the coordinate.
type AddSlotRequest struct {
	ClassID        string         `json:"classId" validate:"required"`
	SubjectID      string         `json:"subjectId" validate:"required"`
	TeacherID      string         `json:"teacherId" validate:"required"`
	Day            models.Weekday `json:"day" validate:"required"`
	PeriodID       string         `json:"periodId" validate:"required"`
	RoomID         *string        `json:"roomId"`
	IsExam         bool           `json:"isExam"`
	IsDoublePeriod bool           `json:"isDoublePeriod"`
	ExamType       *string        `json:"examType"`
}

// MoveSlotRequest relocates a slot (and its double-period partner).
type MoveSlotRequest struct {
	Day      models.Weekday `json:"day" validate:"required"`
	PeriodID string         `json:"periodId" validate:"required"`
	RoomID   *string        `json:"roomId"`
}

// ReplaceSlotsRequest swaps the whole slot set when the version still matches.
type ReplaceSlotsRequest struct {
	ExpectedVersion int                    `json:"expectedVersion" validate:"min=1"`
	Slots           []models.TimetableSlot `json:"slots"`
}

// SetStatusRequest transitions the timetable lifecycle.
type SetStatusRequest struct {
	Status    models.TimetableStatus `json:"status" validate:"required,oneof=DRAFT ACTIVE ARCHIVED"`
	Supersede bool                   `json:"supersede"`
}

// GenerateTimetableRequest runs the generator into an existing draft, or a new
// draft when TimetableID is empty.
type GenerateTimetableRequest struct {
	TimetableID  string                    `json:"timetableId"`
	Name         string                    `json:"name" validate:"required_without=TimetableID"`
	AcademicYear string                    `json:"academicYear" validate:"required_without=TimetableID"`
	Term         string                    `json:"term" validate:"required_without=TimetableID"`
	Settings     models.GenerationSettings `json:"settings"`
}

// GenerationResponse reports the applied timetable and everything left unplaced.
// Slots holds the partial schedule of a cancelled run, which is not applied.
type GenerationResponse struct {
	Timetable  *models.Timetable         `json:"timetable"`
	Slots      []models.TimetableSlot    `json:"slots,omitempty"`
	Unplaced   []scheduler.UnplacedUnit  `json:"unplacedUnits"`
	Cancelled  bool                      `json:"cancelled"`
	Stats      scheduler.GenerationStats `json:"stats"`
	DurationMs int64                     `json:"durationMs"`
}

// ViewQuery selects a viewpoint.
type ViewQuery struct {
	SelectedID string `form:"selectedId"`
}

// ViewResponse is a projected grid.
type ViewResponse struct {
	TimetableID string                 `json:"timetableId"`
	Version     int                    `json:"version"`
	Mode        scheduler.ViewMode     `json:"mode"`
	SelectedID  string                 `json:"selectedId,omitempty"`
	Slots       []models.TimetableSlot `json:"slots"`
	Grid        scheduler.Grid         `json:"grid"`
}

// ExportQuery configures a rendered export.
type ExportQuery struct {
	Mode        string `form:"mode"`
	SelectedID  string `form:"selectedId"`
	Format      string `form:"format" validate:"omitempty,oneof=text csv pdf"`
	Orientation string `form:"orientation"`
	PageSize    string `form:"pageSize"`
	Stats       bool   `form:"stats"`
}

// ExportLink is a signed download reference for a stored export.
type ExportLink struct {
	ExportID  string `json:"exportId"`
	URL       string `json:"url"`
	ETag      string `json:"etag"`
	ExpiresAt string `json:"expiresAt"`
}

// UpsertPeriodRequest edits one period of a school day.
type UpsertPeriodRequest struct {
	Name      string            `json:"name" validate:"required,max=60"`
	StartTime string            `json:"startTime" validate:"required,len=5"`
	EndTime   string            `json:"endTime" validate:"required,len=5"`
	Kind      models.PeriodKind `json:"kind" validate:"omitempty,oneof=TEACHING BREAK LUNCH ASSEMBLY STUDY"`
}

// GenerationJobResponse is the status of an asynchronous generation run. Result
// is present once the run has finished or was cancelled.
type GenerationJobResponse struct {
	Job    models.GenerationJob `json:"job"`
	Result *GenerationResponse  `json:"result,omitempty"`
}
