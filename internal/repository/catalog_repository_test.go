package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCatalogRepositoryListSubjects(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "alias_subject_id", "is_band_subject"}).
		AddRow(10, "MATH", "Mathematics", nil, false).
		AddRow(14, "ALG", "Algebra", 10, false).
		AddRow(20, "READ", "Reading", nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, alias_subject_id, is_band_subject FROM subjects ORDER BY id ASC")).
		WillReturnRows(rows)

	subjects, err := repo.ListSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	require.NotNil(t, subjects[1].AliasSubjectID)
	assert.Equal(t, int64(10), *subjects[1].AliasSubjectID)
	assert.True(t, subjects[2].IsBandSubject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryListLabels(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM classes ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "7A").AddRow(2, "7B"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, short_name FROM teachers ORDER BY full_name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "short_name"}).AddRow(101, "Ada Lovelace", "AL"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM rooms ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	classes, err := repo.ListClasses(context.Background())
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	teachers, err := repo.ListTeachers(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "AL", teachers[0].ShortName)

	rooms, err := repo.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryWrapsErrors(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	boom := errors.New("connection refused")

	mock.ExpectQuery("FROM subjects").WillReturnError(boom)

	_, err := repo.ListSubjects(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list subjects")
}
