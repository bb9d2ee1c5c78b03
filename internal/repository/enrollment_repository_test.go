package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE class_id = $1 AND student_id = $2 LIMIT 1")).
		WithArgs("class-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := repo.Exists(context.Background(), "class-1", "student-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsMissIsNotError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("class-1", "student-2").
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.Exists(context.Background(), "class-1", "student-2")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{ClassID: "class-1", StudentID: "student-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.JoinedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByClassOrdersByName(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "student_id", "joined_at", "student_name", "class_title"}).
		AddRow("enr-1", "class-1", "student-1", now, "Amy", "Algebra").
		AddRow("enr-2", "class-1", "student-2", now, "Ben", "Algebra")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.class_id = $1 ORDER BY u.full_name ASC")).
		WithArgs("class-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	require.Equal(t, "Amy", enrollments[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListFiltersByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "student_id", "joined_at", "student_name", "class_title"}).
		AddRow("enr-1", "class-1", "student-1", now, "Amy", "Algebra")
	mock.ExpectQuery("e\\.student_id = \\$1").
		WithArgs("student-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{StudentID: "student-1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Algebra", enrollments[0].ClassTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}
