package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
)

func newReportJobRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportJobRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newReportJobRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.ReportJob{ClassID: "class-1", Format: models.ReportFormatCSV, RequestedBy: "teacher-1"}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.ReportStatusQueued, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryUpdateBuildsPartialSet(t *testing.T) {
	db, mock, cleanup := newReportJobRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	status := models.ReportStatusFinished
	url := "signed-token"
	finished := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $2, result_url = $3, finished_at = $4 WHERE id = $1")).
		WithArgs("job-1", status, url, finished).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		ResultURL:  &url,
		FinishedAt: &finished,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newReportJobRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newReportJobRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	finished := cutoff.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "class_id", "format", "status", "result_url", "file_path", "requested_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", "class-1", "csv", "FINISHED", nil, "reports/job-1.csv", "teacher-1", finished.Add(-time.Minute), finished, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE finished_at IS NOT NULL AND finished_at < $1")).
		WithArgs(cutoff).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "job-1", jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
