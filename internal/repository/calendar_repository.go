package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CalendarRepository persists the school week: active days and their periods.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

type periodRow struct {
	Day models.Weekday `db:"day"`
	models.Period
}

// Load returns every configured day with its periods. Days without rows are omitted.
func (r *CalendarRepository) Load(ctx context.Context) ([]models.SchoolDay, error) {
	const daysQuery = `SELECT day, is_active FROM school_days`
	var days []struct {
		Day      models.Weekday `db:"day"`
		IsActive bool           `db:"is_active"`
	}
	if err := r.db.SelectContext(ctx, &days, daysQuery); err != nil {
		return nil, fmt.Errorf("load school days: %w", err)
	}

	const periodsQuery = `SELECT day, id, name, start_time, end_time, duration_minutes, kind FROM school_periods ORDER BY day ASC, start_time ASC, id ASC`
	var periods []periodRow
	if err := r.db.SelectContext(ctx, &periods, periodsQuery); err != nil {
		return nil, fmt.Errorf("load school periods: %w", err)
	}

	byDay := make(map[models.Weekday][]models.Period, len(days))
	for _, p := range periods {
		byDay[p.Day] = append(byDay[p.Day], p.Period)
	}
	out := make([]models.SchoolDay, 0, len(days))
	for _, d := range days {
		out = append(out, models.SchoolDay{Day: d.Day, IsActive: d.IsActive, Periods: byDay[d.Day]})
	}
	return out, nil
}

// UpsertPeriod inserts or replaces one period of a day.
func (r *CalendarRepository) UpsertPeriod(ctx context.Context, day models.Weekday, period models.Period) error {
	const query = `
INSERT INTO school_periods (day, id, name, start_time, end_time, duration_minutes, kind)
VALUES (:day, :id, :name, :start_time, :end_time, :duration_minutes, :kind)
ON CONFLICT (day, id) DO UPDATE SET name = EXCLUDED.name, start_time = EXCLUDED.start_time,
end_time = EXCLUDED.end_time, duration_minutes = EXCLUDED.duration_minutes, kind = EXCLUDED.kind`
	if _, err := r.db.NamedExecContext(ctx, query, periodRow{Day: day, Period: period}); err != nil {
		return fmt.Errorf("upsert school period: %w", err)
	}
	return nil
}

// SetDayActive toggles whether a day is part of the school week.
func (r *CalendarRepository) SetDayActive(ctx context.Context, day models.Weekday, active bool) error {
	const query = `INSERT INTO school_days (day, is_active) VALUES ($1, $2) ON CONFLICT (day) DO UPDATE SET is_active = EXCLUDED.is_active`
	if _, err := r.db.ExecContext(ctx, query, string(day), active); err != nil {
		return fmt.Errorf("set school day active: %w", err)
	}
	return nil
}
