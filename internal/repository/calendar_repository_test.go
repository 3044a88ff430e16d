package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestCalendarRepositoryLoadGroupsPeriodsByDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT day, is_active FROM school_days")).
		WillReturnRows(sqlmock.NewRows([]string{"day", "is_active"}).
			AddRow("MONDAY", true).
			AddRow("SATURDAY", false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT day, id, name, start_time, end_time, duration_minutes, kind FROM school_periods")).
		WillReturnRows(sqlmock.NewRows([]string{"day", "id", "name", "start_time", "end_time", "duration_minutes", "kind"}).
			AddRow("MONDAY", "P1", "Period 1", "07:00", "07:40", 40, "TEACHING").
			AddRow("MONDAY", "BRK", "Break", "07:40", "08:00", 20, "BREAK"))

	days, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, models.Monday, days[0].Day)
	require.Len(t, days[0].Periods, 2)
	assert.Equal(t, models.PeriodKindBreak, days[0].Periods[1].Kind)
	assert.False(t, days[1].IsActive)
	assert.Empty(t, days[1].Periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryUpsertPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_periods")).
		WithArgs("MONDAY", "P1", "Period 1", "07:00", "07:45", 45, "TEACHING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertPeriod(context.Background(), models.Monday, models.Period{
		ID: "P1", Name: "Period 1", StartTime: "07:00", EndTime: "07:45", DurationMinutes: 45, Kind: models.PeriodKindTeaching,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClientIsANoop(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]string
	assert.Error(t, repo.Get(context.Background(), "k", &dest))
	assert.NoError(t, repo.Set(context.Background(), "k", map[string]string{"a": "b"}, 0))
	n, err := repo.DeleteByPrefix(context.Background(), "timetable:")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Close())
}
