package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/repository"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/export"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/jobs"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/storage"
)

type reportJobRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type reportRowSource interface {
	BuildReport(ctx context.Context, classID string) ([]models.StudentReportRow, error)
}

// ReportServiceConfig tunes worker and retention behaviour.
type ReportServiceConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	CleanupInterval   time.Duration
	RetainFor         time.Duration
}

// ReportService turns class reports into downloadable CSV or PDF files.
// Requests are accepted immediately and rendered on a background queue;
// finished files are fetched through signed, expiring links.
type ReportService struct {
	repo    reportJobRepository
	rows    reportRowSource
	classes *ClassService
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	queue   *jobs.Queue
	metrics *MetricsService
	cfg     ReportServiceConfig
	logger  *zap.Logger

	cleanupCancel context.CancelFunc
}

// NewReportService constructs a ReportService and its export queue. Call
// Start before accepting requests.
func NewReportService(repo reportJobRepository, rows reportRowSource, classes *ClassService, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ReportServiceConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 24 * time.Hour
	}
	s := &ReportService{
		repo:    repo,
		rows:    rows,
		classes: classes,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("report-export", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and the retention sweeper.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval > 0 {
		cleanupCtx, cancel := context.WithCancel(ctx)
		s.cleanupCancel = cancel
		go s.cleanupLoop(cleanupCtx)
	}
}

// Stop drains the export workers.
func (s *ReportService) Stop() {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.queue.Stop()
}

// RequestExport queues a report export for the class and returns the job
// in QUEUED state. Only the class owner or an admin may export.
func (s *ReportService) RequestExport(ctx context.Context, classID, actorID string, role models.UserRole, format models.ReportFormat) (*models.ReportJob, error) {
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	class, err := s.classes.AuthorizeByID(ctx, classID, actorID, role)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && class.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class owner can export the report")
	}

	job := &models.ReportJob{
		ID:          uuid.NewString(),
		ClassID:     classID,
		Format:      format,
		Status:      models.ReportStatusQueued,
		RequestedBy: actorID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "class_report", Payload: job.ID}); err != nil {
		s.failJob(ctx, job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report job")
	}

	s.logger.Info("report export queued", zap.String("job_id", job.ID), zap.String("class_id", classID), zap.String("format", string(format)))
	return job, nil
}

// GetJob returns the job status. Visible to the requester and admins.
func (s *ReportService) GetJob(ctx context.Context, jobID, actorID string, role models.UserRole) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdmin && job.RequestedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report job belongs to another user")
	}
	return job, nil
}

// ResolveDownload validates a signed download token and opens the file.
// The caller owns the returned handle.
func (s *ReportService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	f, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file no longer available")
	}
	return f, relPath, nil
}

// process renders one queued export. It runs on the queue workers.
func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	record, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job: %w", err)
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, jobID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	rows, err := s.rows.BuildReport(ctx, record.ClassID)
	if err != nil {
		s.failJob(ctx, jobID, err)
		return nil
	}

	payload, ext, err := s.render(record.Format, rows)
	if err != nil {
		s.failJob(ctx, jobID, err)
		return nil
	}

	relPath := fmt.Sprintf("reports/%s.%s", jobID, ext)
	if _, err := s.store.Save(relPath, payload); err != nil {
		s.failJob(ctx, jobID, err)
		return nil
	}

	url, _, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		s.failJob(ctx, jobID, err)
		return nil
	}

	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateReportJobParams{
		Status:     &finished,
		ResultURL:  &url,
		FilePath:   &relPath,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark job finished: %w", err)
	}

	s.metrics.ReportJobFinished("finished")
	s.logger.Info("report export finished", zap.String("job_id", jobID), zap.Int("rows", len(rows)))
	return nil
}

func (s *ReportService) render(format models.ReportFormat, rows []models.StudentReportRow) ([]byte, string, error) {
	dataset := export.Dataset{
		Headers: []string{"Student ID", "Name", "Score", "Attendance"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student ID": row.StudentID,
			"Name":       row.Name,
			"Score":      strconv.FormatFloat(row.Score, 'f', 1, 64),
			"Attendance": strconv.FormatFloat(row.Attendance, 'f', 1, 64),
		})
	}

	switch format {
	case models.ReportFormatPDF:
		payload, err := s.pdf.Render(dataset, "Class Report")
		return payload, "pdf", err
	default:
		payload, err := s.csv.Render(dataset)
		return payload, "csv", err
	}
}

func (s *ReportService) failJob(ctx context.Context, jobID string, cause error) {
	failed := models.ReportStatusFailed
	now := time.Now().UTC()
	msg := cause.Error()
	if err := s.repo.Update(ctx, jobID, repository.UpdateReportJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Error("failed to mark report job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	s.metrics.ReportJobFinished("failed")
	s.logger.Warn("report export failed", zap.String("job_id", jobID), zap.Error(cause))
}

// cleanupLoop deletes expired export files on the configured interval.
func (s *ReportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired(ctx)
		}
	}
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.RetainFor)
	expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("failed to list expired report jobs", zap.Error(err))
		return
	}
	for _, job := range expired {
		if job.FilePath == nil {
			continue
		}
		if err := s.store.Delete(*job.FilePath); err != nil {
			s.logger.Warn("failed to delete expired report file", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		cleared := ""
		if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{FilePath: &cleared}); err != nil {
			s.logger.Warn("failed to clear report file path", zap.String("job_id", job.ID), zap.Error(err))
		}
		s.logger.Debug("expired report file removed", zap.String("job_id", job.ID))
	}
}
