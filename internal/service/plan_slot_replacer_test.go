package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-editor/internal/models"
	"github.com/noah-isme/timetable-editor/internal/repository"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

func newReplacerFixture(t *testing.T) (*PlanSlotReplacer, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	replacer := NewPlanSlotReplacer(
		repository.NewPlanRepository(sqlxdb),
		repository.NewPlanSlotRepository(sqlxdb),
		sqlxdb,
		nil,
		NewMetricsService(),
		nil,
	)
	return replacer, mock
}

func TestPlanSlotReplacerReplacesInOneTransaction(t *testing.T) {
	replacer, mock := newReplacerFixture(t)
	now := time.Now().UTC()
	slots := []models.PlanSlot{
		{ClassID: 1, Day: "Mon", Period: 1, SubjectID: 10, TeacherID: 101},
		{ClassID: 2, Day: "Mon", Period: 1, SubjectID: 20, TeacherID: 102},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE plans SET updated_at = $2 WHERE id = $1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM plan_slots WHERE plan_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_slots")).
		WithArgs(int64(7), int64(1), "Mon", 1, int64(10), int64(101), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_slots")).
		WithArgs(int64(7), int64(2), "Mon", 1, int64(20), int64(102), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, slots_meta, created_at, updated_at FROM plans WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slots_meta", "created_at", "updated_at"}).
			AddRow(7, "Spring", []byte(`{}`), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_slots WHERE plan_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"plan_id", "class_id", "day", "period", "subject_id", "teacher_id", "room_id"}).
			AddRow(7, 1, "Mon", 1, 10, 101, nil).
			AddRow(7, 2, "Mon", 1, 20, 102, nil))
	mock.ExpectCommit()

	plan, err := replacer.ReplacePlanSlots(context.Background(), 7, slots)
	require.NoError(t, err)
	assert.Equal(t, int64(7), plan.ID)
	require.Len(t, plan.Slots, 2)
	assert.Equal(t, int64(102), plan.Slots[1].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanSlotReplacerRollsBackOnInsertFailure(t *testing.T) {
	replacer, mock := newReplacerFixture(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE plans").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM plan_slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO plan_slots").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	_, err := replacer.ReplacePlanSlots(context.Background(), 7, []models.PlanSlot{
		{ClassID: 1, Day: "Mon", Period: 1, SubjectID: 10, TeacherID: 101},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistenceFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanSlotReplacerMissingPlan(t *testing.T) {
	replacer, mock := newReplacerFixture(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE plans").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := replacer.ReplacePlanSlots(context.Background(), 404, nil)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanSlotReplacerValidatesBeforeWriting(t *testing.T) {
	replacer, mock := newReplacerFixture(t)

	_, err := replacer.ReplacePlanSlots(context.Background(), 7, []models.PlanSlot{
		{ClassID: 1, Day: "Sat", Period: 1, SubjectID: 10, TeacherID: 101},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = replacer.ReplacePlanSlots(context.Background(), 7, []models.PlanSlot{
		{ClassID: 1, Day: "Mon", Period: 0, SubjectID: 10, TeacherID: 101},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
