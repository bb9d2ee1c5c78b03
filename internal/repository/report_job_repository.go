package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
)

// ReportJobRepository persists class-report export jobs.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs the repository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// UpdateReportJobParams captures the mutable subset of a report job.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	ResultURL    *string
	FilePath     *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Create persists a new report job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	const query = `INSERT INTO report_jobs (id, class_id, format, status, result_url, file_path, requested_by, created_at, finished_at, error_message)
        VALUES (:id, :class_id, :format, :status, :result_url, :file_path, :requested_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns a report job.
func (r *ReportJobRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, class_id, format, status, result_url, file_path, requested_by, created_at, finished_at, error_message
        FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// Update applies the provided mutable fields to a job.
func (r *ReportJobRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	sets := make([]string, 0, 5)
	args := []interface{}{id}

	if params.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *params.Status)
	}
	if params.ResultURL != nil {
		sets = append(sets, fmt.Sprintf("result_url = $%d", len(args)+1))
		args = append(args, *params.ResultURL)
	}
	if params.FilePath != nil {
		sets = append(sets, fmt.Sprintf("file_path = $%d", len(args)+1))
		args = append(args, *params.FilePath)
	}
	if params.ErrorMessage != nil {
		sets = append(sets, fmt.Sprintf("error_message = $%d", len(args)+1))
		args = append(args, *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		sets = append(sets, fmt.Sprintf("finished_at = $%d", len(args)+1))
		args = append(args, *params.FinishedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListFinishedBefore returns finished or failed jobs older than cutoff,
// used by the cleanup sweep.
func (r *ReportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, class_id, format, status, result_url, file_path, requested_by, created_at, finished_at, error_message
        FROM report_jobs WHERE finished_at IS NOT NULL AND finished_at < $1 LIMIT %d`, limit)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}
