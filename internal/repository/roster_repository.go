package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RosterRepository reads the subject, class, teacher and room reference data.
// The roster is owned by other services; this repository never writes it.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Load returns the complete roster, each list ordered by id.
func (r *RosterRepository) Load(ctx context.Context) (models.Roster, error) {
	var roster models.Roster

	const subjectsQuery = `SELECT id, code, name, periods_per_week, double_periods_per_week, difficulty_level, requires_lab, category, form_levels, preferred_periods
FROM subjects ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &roster.Subjects, subjectsQuery); err != nil {
		return models.Roster{}, fmt.Errorf("load subjects: %w", err)
	}

	const classesQuery = `SELECT id, name, form_level, class_teacher_id FROM classes ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &roster.Classes, classesQuery); err != nil {
		return models.Roster{}, fmt.Errorf("load classes: %w", err)
	}

	const teachersQuery = `SELECT t.id, t.full_name,
COALESCE(ARRAY(SELECT ts.subject_id FROM teacher_subjects ts WHERE ts.teacher_id = t.id ORDER BY ts.subject_id), '{}') AS subject_ids,
COALESCE(ARRAY(SELECT tc.class_id FROM teacher_classes tc WHERE tc.teacher_id = t.id ORDER BY tc.class_id), '{}') AS class_ids
FROM teachers t WHERE t.active = TRUE ORDER BY t.id ASC`
	if err := r.db.SelectContext(ctx, &roster.Teachers, teachersQuery); err != nil {
		return models.Roster{}, fmt.Errorf("load teachers: %w", err)
	}

	const roomsQuery = `SELECT id, name, is_lab, capacity FROM rooms ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &roster.Rooms, roomsQuery); err != nil {
		return models.Roster{}, fmt.Errorf("load rooms: %w", err)
	}

	return roster, nil
}
