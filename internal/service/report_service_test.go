package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/repository"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/storage"
)

type mockReportJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.ReportJob
}

func newMockReportJobRepo() *mockReportJobRepo {
	return &mockReportJobRepo{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportJobRepo) Create(ctx context.Context, job *models.ReportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockReportJobRepo) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportJobRepo) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockReportJobRepo) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type staticRowSource struct {
	rows []models.StudentReportRow
}

func (s *staticRowSource) BuildReport(ctx context.Context, classID string) ([]models.StudentReportRow, error) {
	return s.rows, nil
}

func newReportFixture(t *testing.T) (*ReportService, *mockReportJobRepo) {
	t.Helper()

	classes := newMockClassRepo()
	classes.classes["class-1"] = &models.Class{ID: "class-1", OwnerID: "teacher-1"}
	classService := NewClassService(classes, &mockEnrollmentChecker{members: map[string]bool{}}, nil, validator.New(), zap.NewNop())

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)

	repo := newMockReportJobRepo()
	rows := &staticRowSource{rows: []models.StudentReportRow{
		{StudentID: "student-1", Name: "Student One", Score: 88.5, Attendance: 92.0},
	}}

	svc := NewReportService(repo, rows, classService, store, signer, nil, ReportServiceConfig{
		WorkerConcurrency: 1,
		WorkerRetries:     1,
	}, zap.NewNop())
	return svc, repo
}

func waitForStatus(t *testing.T, repo *mockReportJobRepo, jobID string, want models.ReportStatus) *models.ReportJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.GetByID(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestRequestExportRendersCSV(t *testing.T) {
	svc, repo := newReportFixture(t)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.RequestExport(ctx, "class-1", "teacher-1", models.RoleTeacher, models.ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)

	finished := waitForStatus(t, repo, job.ID, models.ReportStatusFinished)
	require.NotNil(t, finished.ResultURL)
	require.NotNil(t, finished.FilePath)
	assert.True(t, strings.HasSuffix(*finished.FilePath, ".csv"))

	file, _, err := svc.ResolveDownload(*finished.ResultURL)
	require.NoError(t, err)
	defer file.Close()

	buf := make([]byte, 256)
	n, _ := file.Read(buf)
	content := string(buf[:n])
	assert.Contains(t, content, "Student One")
	assert.Contains(t, content, "88.5")
}

func TestRequestExportRendersPDF(t *testing.T) {
	svc, repo := newReportFixture(t)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.RequestExport(ctx, "class-1", "teacher-1", models.RoleTeacher, models.ReportFormatPDF)
	require.NoError(t, err)

	finished := waitForStatus(t, repo, job.ID, models.ReportStatusFinished)
	require.NotNil(t, finished.FilePath)
	assert.True(t, strings.HasSuffix(*finished.FilePath, ".pdf"))

	file, _, err := svc.ResolveDownload(*finished.ResultURL)
	require.NoError(t, err)
	defer file.Close()

	magic := make([]byte, 4)
	_, err = file.Read(magic)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(magic))
}

func TestRequestExportRejectsUnknownFormat(t *testing.T) {
	svc, _ := newReportFixture(t)
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.RequestExport(context.Background(), "class-1", "teacher-1", models.RoleTeacher, models.ReportFormat("xlsx"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestExportOwnerOnly(t *testing.T) {
	svc, _ := newReportFixture(t)
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.RequestExport(context.Background(), "class-1", "teacher-2", models.RoleTeacher, models.ReportFormatCSV)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGetJobVisibility(t *testing.T) {
	svc, repo := newReportFixture(t)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.RequestExport(ctx, "class-1", "teacher-1", models.RoleTeacher, models.ReportFormatCSV)
	require.NoError(t, err)
	waitForStatus(t, repo, job.ID, models.ReportStatusFinished)

	_, err = svc.GetJob(ctx, job.ID, "teacher-1", models.RoleTeacher)
	assert.NoError(t, err)

	_, err = svc.GetJob(ctx, job.ID, "teacher-2", models.RoleTeacher)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestResolveDownloadRejectsTamperedToken(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, _, err := svc.ResolveDownload("bogus-token")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
