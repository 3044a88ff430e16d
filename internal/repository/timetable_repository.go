package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ErrVersionMismatch is returned when an optimistic update loses the race.
var ErrVersionMismatch = errors.New("timetable version mismatch")

const timetableColumns = `id, name, academic_year, term, type, status, slots, conflicts, rules, version, created_at, updated_at`

type timetableRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	AcademicYear string         `db:"academic_year"`
	Term         string         `db:"term"`
	Type         string         `db:"type"`
	Status       string         `db:"status"`
	Slots        types.JSONText `db:"slots"`
	Conflicts    types.JSONText `db:"conflicts"`
	Rules        types.JSONText `db:"rules"`
	Version      int            `db:"version"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (row timetableRow) toModel() (*models.Timetable, error) {
	tt := &models.Timetable{
		ID:           row.ID,
		Name:         row.Name,
		AcademicYear: row.AcademicYear,
		Term:         row.Term,
		Type:         models.TimetableType(row.Type),
		Status:       models.TimetableStatus(row.Status),
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.Slots) > 0 {
		if err := json.Unmarshal(row.Slots, &tt.Slots); err != nil {
			return nil, fmt.Errorf("decode timetable slots: %w", err)
		}
	}
	if len(row.Conflicts) > 0 {
		if err := json.Unmarshal(row.Conflicts, &tt.Conflicts); err != nil {
			return nil, fmt.Errorf("decode timetable conflicts: %w", err)
		}
	}
	if len(row.Rules) > 0 {
		if err := json.Unmarshal(row.Rules, &tt.Rules); err != nil {
			return nil, fmt.Errorf("decode timetable rules: %w", err)
		}
	}
	return tt, nil
}

func newTimetableRow(tt *models.Timetable) (timetableRow, error) {
	slots := tt.Slots
	if slots == nil {
		slots = []models.TimetableSlot{}
	}
	conflicts := tt.Conflicts
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return timetableRow{}, fmt.Errorf("encode timetable slots: %w", err)
	}
	conflictsJSON, err := json.Marshal(conflicts)
	if err != nil {
		return timetableRow{}, fmt.Errorf("encode timetable conflicts: %w", err)
	}
	rulesJSON, err := json.Marshal(tt.Rules)
	if err != nil {
		return timetableRow{}, fmt.Errorf("encode timetable rules: %w", err)
	}
	return timetableRow{
		ID:           tt.ID,
		Name:         tt.Name,
		AcademicYear: tt.AcademicYear,
		Term:         tt.Term,
		Type:         string(tt.Type),
		Status:       string(tt.Status),
		Slots:        types.JSONText(slotsJSON),
		Conflicts:    types.JSONText(conflictsJSON),
		Rules:        types.JSONText(rulesJSON),
		Version:      tt.Version,
		CreatedAt:    tt.CreatedAt,
		UpdatedAt:    tt.UpdatedAt,
	}, nil
}

// TimetableRepository persists timetables as one row with slots and conflicts inline.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a timetable at version 1.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable) error {
	if tt == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	if tt.Status == "" {
		tt.Status = models.TimetableStatusDraft
	}
	if tt.Type == "" {
		tt.Type = models.TimetableTypeTeaching
	}
	now := time.Now().UTC()
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = now
	}
	tt.UpdatedAt = now
	tt.Version = 1

	row, err := newTimetableRow(tt)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO timetables (id, name, academic_year, term, type, status, slots, conflicts, rules, version, created_at, updated_at)
VALUES (:id, :name, :academic_year, :term, :type, :status, :slots, :conflicts, :rules, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, row); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable. Missing rows surface as sql.ErrNoRows.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE id = $1`
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// List returns timetables matching the filter, newest first.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		where = append(where, fmt.Sprintf("academic_year = $%d", len(args)))
	}
	if filter.Term != "" {
		args = append(args, filter.Term)
		where = append(where, fmt.Sprintf("term = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE ` + strings.Join(where, " AND ") + ` ORDER BY updated_at DESC, id ASC`

	var rows []timetableRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	out := make([]models.Timetable, 0, len(rows))
	for _, row := range rows {
		tt, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *tt)
	}
	return out, nil
}

// ActivationLockKey names the advisory lock serialising activation of one
// (year, term, type) tuple.
func ActivationLockKey(academicYear, term string, kind models.TimetableType) string {
	return "timetable-active:" + academicYear + "|" + term + "|" + string(kind)
}

// FindActive returns the ACTIVE timetable for a (year, term, type) tuple, or sql.ErrNoRows.
// Inside a transaction it first takes a transaction-scoped advisory lock on the
// tuple, so a concurrent activation waits even when no row is ACTIVE yet, and
// then locks the row it finds.
func (r *TimetableRepository) FindActive(ctx context.Context, exec sqlx.ExtContext, academicYear, term string, kind models.TimetableType) (*models.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE academic_year = $1 AND term = $2 AND type = $3 AND status = $4 LIMIT 1`
	if exec != nil {
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ActivationLockKey(academicYear, term, kind)); err != nil {
			return nil, fmt.Errorf("lock activation: %w", err)
		}
		query += ` FOR UPDATE`
	}
	var row timetableRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, academicYear, term, string(kind), string(models.TimetableStatusActive)); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Update writes the full timetable when the stored version still equals expectedVersion.
// On success tt.Version is advanced; a lost race returns ErrVersionMismatch.
func (r *TimetableRepository) Update(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable, expectedVersion int) error {
	if tt == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	row, err := newTimetableRow(tt)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	const query = `UPDATE timetables SET name = $1, status = $2, slots = $3, conflicts = $4, rules = $5, version = version + 1, updated_at = $6
WHERE id = $7 AND version = $8`
	result, err := r.exec(exec).ExecContext(ctx, query, row.Name, row.Status, row.Slots, row.Conflicts, row.Rules, now, row.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	tt.Version = expectedVersion + 1
	tt.UpdatedAt = now
	return nil
}

// Delete removes a draft timetable.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, string(models.TimetableStatusDraft))
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountPeriodReferences counts non-draft timetables with a slot at (day, periodID).
func (r *TimetableRepository) CountPeriodReferences(ctx context.Context, day models.Weekday, periodID string) (int, error) {
	probe, err := json.Marshal([]map[string]string{{"day": string(day), "periodId": periodID}})
	if err != nil {
		return 0, fmt.Errorf("encode period probe: %w", err)
	}
	const query = `SELECT COUNT(*) FROM timetables WHERE status <> $1 AND slots @> $2::jsonb`
	var count int
	if err := r.db.GetContext(ctx, &count, query, string(models.TimetableStatusDraft), string(probe)); err != nil {
		return 0, fmt.Errorf("count period references: %w", err)
	}
	return count, nil
}
